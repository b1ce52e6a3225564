package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestParseFieldsAcceptsFencedJSON(t *testing.T) {
	reply := "```json\n{\"title\": \"Lot of 12\", \"year\": \"1932\"}\n```"

	fields, err := parseFields(reply)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if fields["title"] != "Lot of 12" {
		t.Errorf("title = %q", fields["title"])
	}
	if fields["year"] != "1932" {
		t.Errorf("year = %q", fields["year"])
	}
}

func TestParseFieldsCoercesNumbersAndDropsEmpties(t *testing.T) {
	fields, err := parseFields(`{"price": 12.5, "year": 1932, "title": ""}`)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if fields["price"] != "12.5" {
		t.Errorf("price = %q, want \"12.5\"", fields["price"])
	}
	if fields["year"] != "1932" {
		t.Errorf("year = %q, want \"1932\"", fields["year"])
	}
	if _, ok := fields["title"]; ok {
		t.Error("empty string field was kept")
	}
}

func TestParseFieldsRejectsNonObject(t *testing.T) {
	if _, err := parseFields("here is your metadata, no JSON though"); err == nil {
		t.Error("parseFields accepted prose")
	}
}

func TestExtractMetadataWithoutKeyFailsAsAuth(t *testing.T) {
	c := New("", "gemini-1.5-flash")

	_, err := c.ExtractMetadata(context.Background(), []byte{0xff}, "prompt")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("error = %v, want ExtractionError", err)
	}
	if extErr.Reason != ReasonAuth {
		t.Errorf("Reason = %q, want %q", extErr.Reason, ReasonAuth)
	}
}

func TestClassifyCallError(t *testing.T) {
	cases := []struct {
		msg  string
		want ExtractionReason
	}{
		{"API key not valid", ReasonAuth},
		{"googleapi: Error 429: quota exceeded", ReasonRateLimit},
		{"resource exhausted", ReasonRateLimit},
		{"connection reset by peer", ReasonMalformedResponse},
	}
	for _, tc := range cases {
		got := classifyCallError(errors.New(tc.msg))
		if got.Reason != tc.want {
			t.Errorf("classifyCallError(%q).Reason = %q, want %q", tc.msg, got.Reason, tc.want)
		}
	}
}
