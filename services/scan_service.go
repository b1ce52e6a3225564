package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/sheetlot/scanbackend/media"
	"github.com/sheetlot/scanbackend/models"
	"github.com/sheetlot/scanbackend/repository"
)

// DefaultExtractionPrompt is sent with the combined sheet image unless the
// caller overrides it.
const DefaultExtractionPrompt = `You are cataloging a scanned sheet of collectible postcards. ` +
	`Reply with a single JSON object using only these keys (omit any you cannot determine): ` +
	`title, description, condition, price, year, publisher, country.`

// MetadataExtractor is the external AI collaborator. Long-running; callers
// invoke it without holding store state and commit results afterwards.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, imageBytes []byte, prompt string) (map[string]string, error)
}

// ScanService ties ingestion, grid resolution, extraction, and combined
// derivation together. It is the surface the HTTP layer and workers call.
type ScanService struct {
	Entities  repository.EntityRepositoryInterface
	Records   repository.RecordRepositoryInterface
	Activity  repository.ActivityRepositoryInterface
	Pairing   *PairingCoordinator
	Resolver  *GridResolver
	Processor *media.Processor
	Extractor MetadataExtractor
	Prompt    string
}

func (s *ScanService) prompt() string {
	if s.Prompt != "" {
		return s.Prompt
	}
	return DefaultExtractionPrompt
}

// Ingest fingerprints the uploaded bytes, stores them once, and returns the
// entity for (fingerprint, side). Uploading identical bytes twice yields the
// same entity both times.
func (s *ScanService) Ingest(data []byte, side models.SheetSide, name, sessionID string) (*models.ScanEntity, error) {
	if side != models.SideFace && side != models.SideVerso {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}
	if len(data) == 0 {
		return nil, &media.HashingError{Err: fmt.Errorf("empty upload")}
	}

	fingerprint := media.FingerprintBytes(data)

	// dims and scanner EXIF are best effort; an undecodable image still
	// dedups by content
	scanInfo, infoErr := media.ReadScanInfo(data)
	if infoErr != nil {
		log.Printf("services.scan: could not decode dimensions for %s: %v", name, infoErr)
	}

	// deterministic path keyed by content, so a re-upload lands on the
	// same file
	relPath, err := s.Processor.Store().Save(media.AssetTypeUpload, string(side), fingerprint+".jpg", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", name, err)
	}

	entity, created, err := s.Entities.GetOrCreate(repository.NewEntityParams{
		Fingerprint:  fingerprint,
		Side:         side,
		OriginalName: name,
		ByteSize:     int64(len(data)),
		PixelWidth:   scanInfo.Width,
		PixelHeight:  scanInfo.Height,
		StoredPath:   &relPath,
	})
	if err != nil {
		return nil, err
	}

	s.Pairing.Touch(sessionID, side, entity.ID)

	detail := map[string]interface{}{
		"name":         name,
		"byte_size":    len(data),
		"deduplicated": !created,
	}
	if scanInfo.Width != nil {
		detail["width"] = *scanInfo.Width
		detail["height"] = *scanInfo.Height
	}
	if scanInfo.ScannerMake != nil {
		detail["scanner_make"] = *scanInfo.ScannerMake
	}
	if scanInfo.ScannerName != nil {
		detail["scanner_model"] = *scanInfo.ScannerName
	}
	if scanInfo.ScannedAt != nil {
		detail["scanned_at"] = *scanInfo.ScannedAt
	}
	s.appendActivity(sessionID, &entity.ID, models.ActionUploaded, detail)

	return entity, nil
}

// ResolveGrid runs the priority resolution for an entity within a session.
func (s *ScanService) ResolveGrid(entityID, sessionID string) (GridResult, error) {
	return s.Resolver.Resolve(entityID, sessionID)
}

// SetGridOverride replaces the stored grid with an explicit user value.
func (s *ScanService) SetGridOverride(entityID, sessionID string, rows, cols int) error {
	if err := s.Resolver.SetOverride(entityID, rows, cols); err != nil {
		return err
	}
	s.appendActivity(sessionID, &entityID, models.ActionGridAdjusted, map[string]interface{}{
		"rows": rows,
		"cols": cols,
	})
	return nil
}

// RecordExtraction merges externally produced crop results into the entity's
// record without touching unrelated fields.
func (s *ScanService) RecordExtraction(entityID, sessionID string, cropPaths []string, rowBoundaries, colBoundaries []int) error {
	upd := repository.RecordUpdate{
		CropPaths:     cropPaths,
		RowBoundaries: rowBoundaries,
		ColBoundaries: colBoundaries,
	}
	if err := s.Records.UpsertMerge(entityID, upd); err != nil {
		return err
	}
	s.appendActivity(sessionID, &entityID, models.ActionExtracted, map[string]interface{}{
		"crop_count": len(cropPaths),
	})
	return nil
}

// RunExtraction generates the per-cell crops for an entity from its resolved
// grid and merges the outcome. Boundary positions from detection are used
// when present; a user-overridden grid without positions cuts uniformly.
func (s *ScanService) RunExtraction(entityID, sessionID string) ([]string, error) {
	entity, err := s.Entities.GetByID(entityID)
	if err != nil {
		return nil, err
	}
	record, err := s.Records.Find(entityID)
	if err != nil {
		return nil, err
	}
	if !record.GridResolved() {
		return nil, ErrGridUnresolved
	}
	if entity.StoredPath == nil {
		return nil, fmt.Errorf("entity %s has no stored scan to extract from", entityID)
	}

	layout, err := s.layoutFor(entity, record)
	if err != nil {
		return nil, err
	}

	fullPath, err := s.Processor.Store().GetFullPath(*entity.StoredPath)
	if err != nil {
		return nil, err
	}
	cropPaths, extractionDir, err := s.Processor.GenerateCrops(fullPath, entityID, layout)
	if err != nil {
		return nil, err
	}

	upd := repository.RecordUpdate{
		CropPaths:     cropPaths,
		RowBoundaries: layout.RowBoundaries,
		ColBoundaries: layout.ColBoundaries,
		ExtractionDir: &extractionDir,
	}
	if err := s.Records.UpsertMerge(entityID, upd); err != nil {
		return nil, err
	}
	s.appendActivity(sessionID, &entityID, models.ActionExtracted, map[string]interface{}{
		"crop_count":     len(cropPaths),
		"extraction_dir": extractionDir,
	})
	return cropPaths, nil
}

func (s *ScanService) layoutFor(entity *models.ScanEntity, record *models.ProcessingRecord) (media.GridLayout, error) {
	rowBoundaries, err := models.DecodeInts(record.RowBoundaries)
	if err != nil {
		return media.GridLayout{}, err
	}
	colBoundaries, err := models.DecodeInts(record.ColBoundaries)
	if err != nil {
		return media.GridLayout{}, err
	}

	if len(rowBoundaries) < 2 {
		if entity.PixelHeight == nil {
			return media.GridLayout{}, fmt.Errorf("entity %s has no pixel dimensions for uniform cuts", entity.ID)
		}
		rowBoundaries = media.UniformBoundaries(*entity.PixelHeight, *record.GridRows)
	}
	if len(colBoundaries) < 2 {
		if entity.PixelWidth == nil {
			return media.GridLayout{}, fmt.Errorf("entity %s has no pixel dimensions for uniform cuts", entity.ID)
		}
		colBoundaries = media.UniformBoundaries(*entity.PixelWidth, *record.GridCols)
	}

	return media.GridLayout{
		Rows:          *record.GridRows,
		Cols:          *record.GridCols,
		RowBoundaries: rowBoundaries,
		ColBoundaries: colBoundaries,
	}, nil
}

// RecordAIMetadata merges caller-supplied metadata fields. Unrecognized
// fields reject the whole call before any write.
func (s *ScanService) RecordAIMetadata(entityID, sessionID string, fields map[string]string) error {
	if err := s.Records.UpsertMerge(entityID, repository.RecordUpdate{Metadata: fields}); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	s.appendActivity(sessionID, &entityID, models.ActionAIExtracted, map[string]interface{}{
		"fields": keys,
	})
	return nil
}

// RunAIExtraction calls the AI collaborator on an entity's stored image and
// merges whatever recognized fields come back. On partial success the
// extracted fields are stored and the error still surfaces; stored data is
// never clobbered by a failure.
func (s *ScanService) RunAIExtraction(ctx context.Context, entityID, sessionID string) (map[string]string, error) {
	entity, err := s.Entities.GetByID(entityID)
	if err != nil {
		return nil, err
	}
	if entity.StoredPath == nil {
		return nil, fmt.Errorf("entity %s has no stored image for AI extraction", entityID)
	}

	reader, _, err := s.Processor.Store().Get(*entity.StoredPath)
	if err != nil {
		return nil, err
	}
	imageBytes, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read stored image for %s: %w", entityID, err)
	}

	// external call; no store lock is held here
	fields, extractErr := s.Extractor.ExtractMetadata(ctx, imageBytes, s.prompt())

	recognized := map[string]string{}
	for k, v := range fields {
		if repository.RecognizedMetadataField(k) {
			recognized[k] = v
		} else {
			log.Printf("services.scan: dropping unrecognized AI field %q for %s", k, entityID)
		}
	}

	if len(recognized) > 0 {
		if err := s.RecordAIMetadata(entityID, sessionID, recognized); err != nil {
			return nil, err
		}
	}
	if extractErr != nil {
		return recognized, extractErr
	}
	return recognized, nil
}

// DeriveCombined composes the session's completed face/verso pair into a
// combined entity. The composed artifact is itself fingerprinted and run
// through the same dedup path, so re-deriving the same pair returns the same
// entity. returns nil without error while the pairing is incomplete.
func (s *ScanService) DeriveCombined(sessionID string) (*models.ScanEntity, error) {
	faceID, versoID := s.Pairing.ActivePair(sessionID)
	if faceID == nil || versoID == nil {
		return nil, nil
	}

	faceCrops, err := s.completedCrops(*faceID)
	if err != nil {
		return nil, err
	}
	versoCrops, err := s.completedCrops(*versoID)
	if err != nil {
		return nil, err
	}
	if faceCrops == nil || versoCrops == nil {
		// one side has not finished extraction yet
		return nil, nil
	}

	cells, err := s.Processor.MatchPairCells(faceCrops, versoCrops)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, ErrNoOverlappingCells
	}

	artifact, err := s.Processor.ComposeCombined(cells)
	if err != nil {
		return nil, err
	}

	fingerprint := media.FingerprintBytes(artifact)
	relPath, err := s.Processor.Store().Save(media.AssetTypeCombined, "", fingerprint+".jpg", bytes.NewReader(artifact))
	if err != nil {
		return nil, fmt.Errorf("failed to store combined artifact: %w", err)
	}

	rows, cols := gridFromCells(cells)
	width, height := 0, 0
	if cfg, err := decodeDims(artifact); err == nil {
		width, height = cfg[0], cfg[1]
	}

	entity, created, err := s.Entities.GetOrCreate(repository.NewEntityParams{
		Fingerprint:  fingerprint,
		Side:         models.SideCombined,
		OriginalName: fmt.Sprintf("combined_%dx%d.jpg", rows, cols),
		ByteSize:     int64(len(artifact)),
		PixelWidth:   nonZero(width),
		PixelHeight:  nonZero(height),
		StoredPath:   &relPath,
	})
	if err != nil {
		return nil, err
	}

	if created {
		combinedPaths, lotPaths, err := s.Processor.SaveCellComposites(entity.ID, cells)
		if err != nil {
			return nil, err
		}
		extractionDir := path.Dir(combinedPaths[0])
		source := models.GridSourceStored
		err = s.Records.UpsertMerge(entity.ID, repository.RecordUpdate{
			GridRows:      &rows,
			GridCols:      &cols,
			GridSource:    &source,
			CropPaths:     combinedPaths,
			ExtractionDir: &extractionDir,
		})
		if err != nil {
			return nil, err
		}
		s.appendActivity(sessionID, &entity.ID, models.ActionCombined, map[string]interface{}{
			"face_entity":  *faceID,
			"verso_entity": *versoID,
			"cells":        len(cells),
			"lots":         len(lotPaths),
		})
	}

	return entity, nil
}

// completedCrops returns the decoded crop paths for an entity, or nil when
// extraction has not produced any yet.
func (s *ScanService) completedCrops(entityID string) ([]string, error) {
	record, err := s.Records.Find(entityID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	crops, err := models.DecodeStrings(record.CropPaths)
	if err != nil {
		return nil, err
	}
	if len(crops) == 0 {
		return nil, nil
	}
	return crops, nil
}

// LogActivity appends a caller-originated audit entry.
func (s *ScanService) LogActivity(sessionID string, entityID *string, action models.ActivityAction, detail map[string]interface{}) error {
	if !models.ValidAction(action) {
		return fmt.Errorf("invalid activity action: %s", action)
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode activity detail: %w", err)
	}
	return s.Activity.Append(sessionID, entityID, action, string(payload))
}

// appendActivity writes an internal audit entry; the log is observational,
// so failures are logged and swallowed rather than failing the operation.
func (s *ScanService) appendActivity(sessionID string, entityID *string, action models.ActivityAction, detail map[string]interface{}) {
	payload, err := json.Marshal(detail)
	if err != nil {
		log.Printf("services.scan: failed to encode activity detail: %v", err)
		return
	}
	if err := s.Activity.Append(sessionID, entityID, action, string(payload)); err != nil {
		log.Printf("services.scan: failed to append %s activity: %v", action, err)
	}
}

func gridFromCells(cells []media.PairCell) (rows, cols int) {
	for _, c := range cells {
		if c.Row+1 > rows {
			rows = c.Row + 1
		}
		if c.Col+1 > cols {
			cols = c.Col + 1
		}
	}
	return rows, cols
}

func nonZero(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func decodeDims(data []byte) ([2]int, error) {
	info, err := media.ReadScanInfo(data)
	if err != nil || info.Width == nil || info.Height == nil {
		return [2]int{}, fmt.Errorf("no dimensions")
	}
	return [2]int{*info.Width, *info.Height}, nil
}
