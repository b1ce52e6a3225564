package repository

import (
	"testing"

	"github.com/sheetlot/scanbackend/models"
)

func TestAppendAndListBySession(t *testing.T) {
	repo := NewActivityRepository(newTestDB(t), 3)

	e1 := "entity-1"
	if err := repo.Append("s1", &e1, models.ActionUploaded, `{"name":"a.jpg"}`); err != nil {
		t.Fatalf("Append uploaded: %v", err)
	}
	if err := repo.Append("s1", &e1, models.ActionExtracted, `{"crops":12}`); err != nil {
		t.Fatalf("Append extracted: %v", err)
	}
	if err := repo.Append("s2", nil, models.ActionCombined, `{}`); err != nil {
		t.Fatalf("Append other session: %v", err)
	}

	entries, err := repo.ListBySession("s1", 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries for s1, want 2", len(entries))
	}
	// newest first
	if entries[0].Action != models.ActionExtracted {
		t.Errorf("entries[0].Action = %q, want %q first", entries[0].Action, models.ActionExtracted)
	}
	if entries[1].Action != models.ActionUploaded {
		t.Errorf("entries[1].Action = %q, want %q", entries[1].Action, models.ActionUploaded)
	}
	if entries[0].EntityID == nil || *entries[0].EntityID != e1 {
		t.Errorf("entries[0].EntityID = %v, want %q", entries[0].EntityID, e1)
	}
}

func TestAppendRejectsUnknownAction(t *testing.T) {
	repo := NewActivityRepository(newTestDB(t), 3)

	err := repo.Append("s1", nil, models.ActivityAction("renamed"), `{}`)
	if err == nil {
		t.Fatal("Append accepted an unknown action")
	}

	entries, lerr := repo.ListBySession("s1", 0)
	if lerr != nil {
		t.Fatalf("ListBySession: %v", lerr)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after rejected append, want 0", len(entries))
	}
}

func TestListBySessionHonorsLimit(t *testing.T) {
	repo := NewActivityRepository(newTestDB(t), 3)

	for i := 0; i < 5; i++ {
		if err := repo.Append("s1", nil, models.ActionGridAdjusted, `{}`); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	entries, err := repo.ListBySession("s1", 3)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}
