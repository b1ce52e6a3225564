package repository

import (
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/models"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t), 3)

	params := NewEntityParams{
		Fingerprint:  "abc123",
		Side:         models.SideFace,
		OriginalName: "sheet1.jpg",
		ByteSize:     1024,
		StoredPath:   strPtr("uploads/face/abc123.jpg"),
	}

	first, created, err := repo.GetOrCreate(params)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Errorf("created = false, want true on first sight")
	}
	if first.ID == "" {
		t.Errorf("first.ID is empty")
	}

	second, created, err := repo.GetOrCreate(params)
	if err != nil {
		t.Fatalf("GetOrCreate (repeat): %v", err)
	}
	if created {
		t.Errorf("created = true on repeat, want false")
	}
	if second.ID != first.ID {
		t.Errorf("repeat returned ID %q, want %q", second.ID, first.ID)
	}
	if second.LastSeenAt < first.LastSeenAt {
		t.Errorf("LastSeenAt went backwards: %d -> %d", first.LastSeenAt, second.LastSeenAt)
	}
}

func TestSameFingerprintDifferentSidesAreDistinct(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t), 3)

	face, _, err := repo.GetOrCreate(NewEntityParams{Fingerprint: "ff00", Side: models.SideFace, OriginalName: "a.jpg"})
	if err != nil {
		t.Fatalf("GetOrCreate face: %v", err)
	}
	verso, _, err := repo.GetOrCreate(NewEntityParams{Fingerprint: "ff00", Side: models.SideVerso, OriginalName: "b.jpg"})
	if err != nil {
		t.Fatalf("GetOrCreate verso: %v", err)
	}
	if face.ID == verso.ID {
		t.Errorf("face and verso share entity ID %q, want distinct entities", face.ID)
	}
}

func TestFindReturnsNilWhenAbsent(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t), 3)

	got, err := repo.Find("missing", models.SideFace)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != nil {
		t.Errorf("Find returned %+v, want nil for absent entity", got)
	}
}

func TestConcurrentGetOrCreateConvergesOnOneEntity(t *testing.T) {
	db := newTestDB(t)
	repo := NewEntityRepository(db, 10)

	params := NewEntityParams{
		Fingerprint:  "race00",
		Side:         models.SideFace,
		OriginalName: "sheet.jpg",
		ByteSize:     512,
	}

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			entity, _, err := repo.GetOrCreate(params)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = entity.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got entity %q, caller 0 got %q", i, ids[i], ids[0])
		}
	}

	var count int64
	if err := db.Model(&models.ScanEntity{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("table holds %d entities after the race, want 1", count)
	}
}

func TestGetByIDPropagatesNotFound(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t), 3)

	_, err := repo.GetByID("no-such-id")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetByID error = %v, want gorm.ErrRecordNotFound", err)
	}
}
