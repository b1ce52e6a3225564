package services

import (
	"bytes"
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/sheetlot/scanbackend/database"
	"github.com/sheetlot/scanbackend/media"
	"github.com/sheetlot/scanbackend/repository"
)

// countingDetector returns a fixed layout and records how often it ran.
type countingDetector struct {
	layout media.GridLayout
	err    error
	calls  int
}

func (d *countingDetector) DetectGrid(path string) (media.GridLayout, error) {
	d.calls++
	if d.err != nil {
		return media.GridLayout{}, d.err
	}
	return d.layout, nil
}

// fixedExtractor returns a fixed field map and records the images it saw.
type fixedExtractor struct {
	fields map[string]string
	err    error
	calls  int
}

func (e *fixedExtractor) ExtractMetadata(ctx context.Context, imageBytes []byte, prompt string) (map[string]string, error) {
	e.calls++
	return e.fields, e.err
}

type harness struct {
	scans     *ScanService
	entities  *repository.EntityRepository
	records   *repository.RecordRepository
	activity  *repository.ActivityRepository
	pairing   *PairingCoordinator
	detector  *countingDetector
	extractor *fixedExtractor
}

func uniformLayout(rows, cols, width, height int) media.GridLayout {
	return media.GridLayout{
		Rows:          rows,
		Cols:          cols,
		RowBoundaries: media.UniformBoundaries(height, rows),
		ColBoundaries: media.UniformBoundaries(width, cols),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}

	store, err := media.NewLocalStorage(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	processor := media.NewProcessor(store)

	entities := repository.NewEntityRepository(db, 3)
	records, err := repository.NewRecordRepository(db, 3)
	if err != nil {
		t.Fatalf("NewRecordRepository: %v", err)
	}
	activity := repository.NewActivityRepository(db, 3)

	pairing := NewPairingCoordinator()
	detector := &countingDetector{layout: uniformLayout(4, 3, 600, 800)}
	extractor := &fixedExtractor{fields: map[string]string{}}

	resolver := NewGridResolver(entities, records, pairing, detector, store)

	scans := &ScanService{
		Entities:  entities,
		Records:   records,
		Activity:  activity,
		Pairing:   pairing,
		Resolver:  resolver,
		Processor: processor,
		Extractor: extractor,
	}

	return &harness{
		scans:     scans,
		entities:  entities,
		records:   records,
		activity:  activity,
		pairing:   pairing,
		detector:  detector,
		extractor: extractor,
	}
}

// sheetJPEG renders a width x height JPEG filled with a solid color. The
// color makes distinct inputs produce distinct bytes and fingerprints.
func sheetJPEG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := imaging.New(width, height, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		t.Fatalf("encode test sheet: %v", err)
	}
	return buf.Bytes()
}
