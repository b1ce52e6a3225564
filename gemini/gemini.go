package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ExtractionReason classifies why an extraction call failed.
type ExtractionReason string

const (
	ReasonAuth              ExtractionReason = "auth"
	ReasonRateLimit         ExtractionReason = "rate_limit"
	ReasonMalformedResponse ExtractionReason = "malformed_response"
)

// ExtractionError wraps a collaborator failure. Callers record any fields
// that were extracted before the failure and surface the error; stored data
// is never touched by a failed call.
type ExtractionError struct {
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metadata extraction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("metadata extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Client calls Gemini vision to pull listing metadata out of a combined
// sheet image.
type Client struct {
	APIKey string
	Model  string
}

// New returns a new extraction client.
func New(apiKey, model string) *Client {
	return &Client{APIKey: apiKey, Model: model}
}

// ExtractMetadata sends the image and prompt to Gemini and parses the reply
// as a flat JSON object of string fields. Partial objects parse fine; absent
// fields simply stay absent.
func (c *Client) ExtractMetadata(ctx context.Context, imageBytes []byte, prompt string) (map[string]string, error) {
	if c.APIKey == "" {
		return nil, &ExtractionError{Reason: ReasonAuth, Err: fmt.Errorf("no API key configured")}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return nil, &ExtractionError{Reason: ReasonAuth, Err: fmt.Errorf("failed to create gemini client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(c.Model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", imageBytes),
		genai.Text(prompt),
	)
	if err != nil {
		return nil, classifyCallError(err)
	}

	if len(resp.Candidates) == 0 {
		return nil, &ExtractionError{Reason: ReasonMalformedResponse, Err: fmt.Errorf("no candidates returned")}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, &ExtractionError{Reason: ReasonMalformedResponse, Err: fmt.Errorf("empty content returned")}
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, &ExtractionError{Reason: ReasonMalformedResponse, Err: fmt.Errorf("unexpected response part type")}
	}

	fields, err := parseFields(string(txt))
	if err != nil {
		return fields, &ExtractionError{Reason: ReasonMalformedResponse, Err: err}
	}
	return fields, nil
}

func classifyCallError(err error) *ExtractionError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission"):
		return &ExtractionError{Reason: ReasonAuth, Err: err}
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate") || strings.Contains(msg, "resource exhausted"):
		return &ExtractionError{Reason: ReasonRateLimit, Err: err}
	default:
		return &ExtractionError{Reason: ReasonMalformedResponse, Err: err}
	}
}

// parseFields pulls a flat string-to-string object out of the model reply,
// tolerating markdown code fences around the JSON.
func parseFields(text string) (map[string]string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	fields := map[string]string{}
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			if val != "" {
				fields[k] = val
			}
		case float64:
			fields[k] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
		}
	}
	return fields, nil
}
