package services

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/sheetlot/scanbackend/models"
)

func TestIngestDeduplicatesIdenticalBytes(t *testing.T) {
	h := newHarness(t)
	data := sheetJPEG(t, 600, 800, color.White)

	first, err := h.scans.Ingest(data, models.SideFace, "scan_a.jpg", "s1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	second, err := h.scans.Ingest(data, models.SideFace, "scan_b.jpg", "s1")
	if err != nil {
		t.Fatalf("Ingest (repeat): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("identical bytes produced two entities: %q and %q", first.ID, second.ID)
	}

	// same bytes as the verso of the sheet is a different entity
	verso, err := h.scans.Ingest(data, models.SideVerso, "scan_a.jpg", "s1")
	if err != nil {
		t.Fatalf("Ingest verso: %v", err)
	}
	if verso.ID == first.ID {
		t.Errorf("verso upload reused the face entity %q", first.ID)
	}
	if verso.Fingerprint != first.Fingerprint {
		t.Errorf("fingerprints differ for identical bytes: %q vs %q", verso.Fingerprint, first.Fingerprint)
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	if _, err := h.scans.Ingest(sheetJPEG(t, 10, 10, color.White), "margin", "x.jpg", "s1"); !errors.Is(err, ErrUnknownSide) {
		t.Errorf("unknown side error = %v, want ErrUnknownSide", err)
	}
	if _, err := h.scans.Ingest(nil, models.SideFace, "x.jpg", "s1"); err == nil {
		t.Error("empty upload was accepted")
	}
}

func TestRunExtractionRequiresResolvedGrid(t *testing.T) {
	h := newHarness(t)
	face := ingest(t, h, models.SideFace, color.White, "s1")

	if _, err := h.scans.RunExtraction(face.ID, "s1"); !errors.Is(err, ErrGridUnresolved) {
		t.Errorf("RunExtraction error = %v, want ErrGridUnresolved", err)
	}
}

func TestRunExtractionProducesRowMajorCrops(t *testing.T) {
	h := newHarness(t)
	face := ingest(t, h, models.SideFace, color.White, "s1")

	if _, err := h.scans.ResolveGrid(face.ID, "s1"); err != nil {
		t.Fatalf("ResolveGrid: %v", err)
	}

	crops, err := h.scans.RunExtraction(face.ID, "s1")
	if err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if len(crops) != 12 {
		t.Fatalf("got %d crops for a 4x3 grid, want 12", len(crops))
	}

	record, err := h.records.Find(face.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	stored, err := models.DecodeStrings(record.CropPaths)
	if err != nil {
		t.Fatalf("DecodeStrings: %v", err)
	}
	if len(stored) != 12 {
		t.Errorf("record has %d crop paths, want 12", len(stored))
	}
	if record.ExtractionDir == nil {
		t.Error("ExtractionDir not recorded")
	}
}

func TestRunExtractionCutsUniformlyAfterOverride(t *testing.T) {
	h := newHarness(t)
	face := ingest(t, h, models.SideFace, color.White, "s1")

	// an override carries dimensions but no boundary positions
	if err := h.scans.SetGridOverride(face.ID, "s1", 2, 2); err != nil {
		t.Fatalf("SetGridOverride: %v", err)
	}

	crops, err := h.scans.RunExtraction(face.ID, "s1")
	if err != nil {
		t.Fatalf("RunExtraction: %v", err)
	}
	if len(crops) != 4 {
		t.Errorf("got %d crops for a 2x2 override, want 4", len(crops))
	}
}

func TestRunAIExtractionKeepsRecognizedFieldsOnly(t *testing.T) {
	h := newHarness(t)
	face := ingest(t, h, models.SideFace, color.White, "s1")

	h.extractor.fields = map[string]string{
		"title":        "Lot of 12 postcards",
		"year":         "1932",
		"frobnication": "ignore me",
	}

	fields, err := h.scans.RunAIExtraction(context.Background(), face.ID, "s1")
	if err != nil {
		t.Fatalf("RunAIExtraction: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("got %d recognized fields, want 2: %v", len(fields), fields)
	}
	if _, ok := fields["frobnication"]; ok {
		t.Error("unrecognized field survived filtering")
	}

	record, err := h.records.Find(face.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if record.Title == nil || *record.Title != "Lot of 12 postcards" {
		t.Errorf("Title = %v, want the extracted value", record.Title)
	}
	if record.Year == nil || *record.Year != "1932" {
		t.Errorf("Year = %v, want \"1932\"", record.Year)
	}
}

func TestRunAIExtractionStoresPartialResultAndSurfacesError(t *testing.T) {
	h := newHarness(t)
	face := ingest(t, h, models.SideFace, color.White, "s1")

	wantErr := errors.New("rate limited")
	h.extractor.fields = map[string]string{"title": "partial"}
	h.extractor.err = wantErr

	fields, err := h.scans.RunAIExtraction(context.Background(), face.ID, "s1")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want the extractor error surfaced", err)
	}
	if fields["title"] != "partial" {
		t.Errorf("fields = %v, want the partial result returned", fields)
	}

	record, findErr := h.records.Find(face.ID)
	if findErr != nil {
		t.Fatalf("Find: %v", findErr)
	}
	if record == nil || record.Title == nil || *record.Title != "partial" {
		t.Error("partial extraction result was not persisted")
	}
}

func TestDeriveCombinedWaitsForBothSides(t *testing.T) {
	h := newHarness(t)

	// nothing uploaded yet
	if entity, err := h.scans.DeriveCombined("s1"); err != nil || entity != nil {
		t.Errorf("DeriveCombined on empty session = (%v, %v), want (nil, nil)", entity, err)
	}

	face := ingest(t, h, models.SideFace, color.White, "s1")
	if entity, err := h.scans.DeriveCombined("s1"); err != nil || entity != nil {
		t.Errorf("DeriveCombined with face only = (%v, %v), want (nil, nil)", entity, err)
	}

	ingest(t, h, models.SideVerso, color.Black, "s1")
	if _, err := h.scans.ResolveGrid(face.ID, "s1"); err != nil {
		t.Fatalf("ResolveGrid: %v", err)
	}
	if _, err := h.scans.RunExtraction(face.ID, "s1"); err != nil {
		t.Fatalf("RunExtraction(face): %v", err)
	}

	// verso has no crops yet
	if entity, err := h.scans.DeriveCombined("s1"); err != nil || entity != nil {
		t.Errorf("DeriveCombined with one extracted side = (%v, %v), want (nil, nil)", entity, err)
	}
}

// Full session walkthrough: upload both sides, resolve, extract, combine,
// attach AI metadata, then re-upload the same sheets and verify everything
// deduplicates onto the already-derived state.
func TestSessionLifecycleSurvivesReupload(t *testing.T) {
	h := newHarness(t)
	faceBytes := sheetJPEG(t, 600, 800, color.White)
	versoBytes := sheetJPEG(t, 600, 800, color.Black)

	face, err := h.scans.Ingest(faceBytes, models.SideFace, "f1.jpg", "s1")
	if err != nil {
		t.Fatalf("Ingest face: %v", err)
	}
	result, err := h.scans.ResolveGrid(face.ID, "s1")
	if err != nil {
		t.Fatalf("ResolveGrid face: %v", err)
	}
	if result.Source != models.GridSourceDetected || result.Rows != 4 || result.Cols != 3 {
		t.Fatalf("face resolution = %+v, want detected 4x3", result)
	}

	verso, err := h.scans.Ingest(versoBytes, models.SideVerso, "v1.jpg", "s1")
	if err != nil {
		t.Fatalf("Ingest verso: %v", err)
	}
	result, err = h.scans.ResolveGrid(verso.ID, "s1")
	if err != nil {
		t.Fatalf("ResolveGrid verso: %v", err)
	}
	if result.Source != models.GridSourceCrossSynced {
		t.Fatalf("verso resolution source = %q, want cross_synced", result.Source)
	}

	if _, err := h.scans.RunExtraction(face.ID, "s1"); err != nil {
		t.Fatalf("RunExtraction face: %v", err)
	}
	if _, err := h.scans.RunExtraction(verso.ID, "s1"); err != nil {
		t.Fatalf("RunExtraction verso: %v", err)
	}

	combined, err := h.scans.DeriveCombined("s1")
	if err != nil {
		t.Fatalf("DeriveCombined: %v", err)
	}
	if combined == nil {
		t.Fatal("DeriveCombined returned nil with both sides extracted")
	}
	if combined.Side != models.SideCombined {
		t.Errorf("combined side = %q", combined.Side)
	}

	title := "Lot of 12"
	if err := h.scans.RecordAIMetadata(combined.ID, "s1", map[string]string{"title": title}); err != nil {
		t.Fatalf("RecordAIMetadata: %v", err)
	}

	// operator re-scans the same sheets
	faceAgain, err := h.scans.Ingest(faceBytes, models.SideFace, "f1_rescan.jpg", "s1")
	if err != nil {
		t.Fatalf("re-Ingest face: %v", err)
	}
	if faceAgain.ID != face.ID {
		t.Errorf("re-upload created new face entity %q, want %q", faceAgain.ID, face.ID)
	}
	versoAgain, err := h.scans.Ingest(versoBytes, models.SideVerso, "v1_rescan.jpg", "s1")
	if err != nil {
		t.Fatalf("re-Ingest verso: %v", err)
	}
	if versoAgain.ID != verso.ID {
		t.Errorf("re-upload created new verso entity %q, want %q", versoAgain.ID, verso.ID)
	}

	detectorCalls := h.detector.calls
	for _, id := range []string{faceAgain.ID, versoAgain.ID} {
		result, err := h.scans.ResolveGrid(id, "s1")
		if err != nil {
			t.Fatalf("ResolveGrid after re-upload: %v", err)
		}
		if result.Source != models.GridSourceStored {
			t.Errorf("post-reupload source for %s = %q, want stored", id, result.Source)
		}
	}
	if h.detector.calls != detectorCalls {
		t.Errorf("detector ran again after re-upload (%d -> %d)", detectorCalls, h.detector.calls)
	}

	combinedAgain, err := h.scans.DeriveCombined("s1")
	if err != nil {
		t.Fatalf("DeriveCombined after re-upload: %v", err)
	}
	if combinedAgain == nil || combinedAgain.ID != combined.ID {
		t.Fatalf("re-derivation produced a different combined entity: %v, want %q", combinedAgain, combined.ID)
	}

	record, err := h.records.Find(combined.ID)
	if err != nil {
		t.Fatalf("Find combined record: %v", err)
	}
	if record == nil || record.Title == nil || *record.Title != title {
		t.Errorf("combined title = %v, want %q intact after re-derivation", record.Title, title)
	}
}
