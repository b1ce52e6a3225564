package services

import (
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/sheetlot/scanbackend/media"
	"github.com/sheetlot/scanbackend/models"
	"github.com/sheetlot/scanbackend/repository"
)

// GridDetector is the external segmentation collaborator. It is long-running
// and must never be called while holding store state; the resolver persists
// its result through the atomic merge path afterwards.
type GridDetector interface {
	DetectGrid(path string) (media.GridLayout, error)
}

// GridResult is the outcome of one grid resolution.
type GridResult struct {
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Source string `json:"source"`
}

// GridResolver decides grid dimensions for an entity in strict priority
// order: stored value first, then the paired opposite side's resolved grid,
// then external detection. A user override is persisted as the stored value
// and therefore wins every later resolution.
type GridResolver struct {
	Entities repository.EntityRepositoryInterface
	Records  repository.RecordRepositoryInterface
	Pairing  *PairingCoordinator
	Detector GridDetector
	Store    media.Store

	// collapses concurrent resolutions of the same entity so the external
	// detector runs at most once per entity at a time
	flights singleflight.Group
}

func NewGridResolver(entities repository.EntityRepositoryInterface, records repository.RecordRepositoryInterface, pairing *PairingCoordinator, detector GridDetector, store media.Store) *GridResolver {
	return &GridResolver{Entities: entities, Records: records, Pairing: pairing, Detector: detector, Store: store}
}

// Resolve returns the grid for entityID, first match wins:
//  1. stored: this entity's record already has dimensions
//  2. cross_synced: the session's opposite-side entity has a resolved grid;
//     it is copied onto this entity so the next identical upload is branch 1
//  3. detected: the external collaborator is invoked and its result persisted
//
// An unresolved opposite side falls through to detection instead of waiting.
//
// Near-simultaneous resolutions of the same entity share one flight: the
// first caller runs the branches, later concurrent callers wait for its
// result instead of triggering a second detection. No store state is held
// while the detector runs.
func (gr *GridResolver) Resolve(entityID, sessionID string) (GridResult, error) {
	v, err, _ := gr.flights.Do(entityID, func() (interface{}, error) {
		return gr.resolve(entityID, sessionID)
	})
	if err != nil {
		return GridResult{}, err
	}
	return v.(GridResult), nil
}

func (gr *GridResolver) resolve(entityID, sessionID string) (GridResult, error) {
	record, err := gr.Records.Find(entityID)
	if err != nil {
		return GridResult{}, err
	}
	if record.GridResolved() {
		return GridResult{Rows: *record.GridRows, Cols: *record.GridCols, Source: models.GridSourceStored}, nil
	}

	entity, err := gr.Entities.GetByID(entityID)
	if err != nil {
		return GridResult{}, err
	}

	if result, ok, err := gr.resolveFromPair(entity, sessionID); err != nil {
		return GridResult{}, err
	} else if ok {
		return result, nil
	}

	return gr.resolveByDetection(entity)
}

func (gr *GridResolver) resolveFromPair(entity *models.ScanEntity, sessionID string) (GridResult, bool, error) {
	oppositeID := gr.Pairing.Opposite(sessionID, entity.Side)
	if oppositeID == nil {
		return GridResult{}, false, nil
	}

	oppRecord, err := gr.Records.Find(*oppositeID)
	if err != nil {
		return GridResult{}, false, err
	}
	if !oppRecord.GridResolved() {
		// opposite side still mid-detection; detect for this entity
		// instead of blocking on it
		return GridResult{}, false, nil
	}

	rows, cols := *oppRecord.GridRows, *oppRecord.GridCols
	source := models.GridSourceCrossSynced
	err = gr.Records.UpsertMerge(entity.ID, repository.RecordUpdate{
		GridRows:   &rows,
		GridCols:   &cols,
		GridSource: &source,
	})
	if err != nil {
		return GridResult{}, false, err
	}

	log.Printf("services.resolver: cross-synced %dx%d from %s onto %s", rows, cols, *oppositeID, entity.ID)
	return GridResult{Rows: rows, Cols: cols, Source: source}, true, nil
}

func (gr *GridResolver) resolveByDetection(entity *models.ScanEntity) (GridResult, error) {
	if entity.StoredPath == nil {
		return GridResult{}, fmt.Errorf("entity %s has no stored scan to detect against", entity.ID)
	}
	fullPath, err := gr.Store.GetFullPath(*entity.StoredPath)
	if err != nil {
		return GridResult{}, err
	}

	// external call; no store lock is held here
	layout, err := gr.Detector.DetectGrid(fullPath)
	if err != nil {
		return GridResult{}, err
	}

	source := models.GridSourceDetected
	err = gr.Records.UpsertMerge(entity.ID, repository.RecordUpdate{
		GridRows:      &layout.Rows,
		GridCols:      &layout.Cols,
		GridSource:    &source,
		RowBoundaries: layout.RowBoundaries,
		ColBoundaries: layout.ColBoundaries,
	})
	if err != nil {
		return GridResult{}, err
	}

	log.Printf("services.resolver: detected %dx%d for %s", layout.Rows, layout.Cols, entity.ID)
	return GridResult{Rows: layout.Rows, Cols: layout.Cols, Source: source}, nil
}

// SetOverride unconditionally replaces the stored grid for an entity with an
// explicit user value. This is the only path allowed to overwrite a
// previously detected or cross-synced grid.
func (gr *GridResolver) SetOverride(entityID string, rows, cols int) error {
	if rows < 1 || cols < 1 {
		return ErrInvalidGrid
	}
	source := models.GridSourceUserAdjusted
	return gr.Records.UpsertMerge(entityID, repository.RecordUpdate{
		GridRows:   &rows,
		GridCols:   &cols,
		GridSource: &source,
	})
}
