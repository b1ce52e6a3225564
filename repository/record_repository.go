package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/database"
	"github.com/sheetlot/scanbackend/models"
)

// recognizedMetadataColumns enumerates the metadata bag fields a merge may
// carry. Anything else is rejected before any write.
var recognizedMetadataColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"condition":   "condition",
	"price":       "price",
	"year":        "year",
	"publisher":   "publisher",
	"country":     "country",
}

// RecognizedMetadataField reports whether name is an accepted metadata field.
func RecognizedMetadataField(name string) bool {
	_, ok := recognizedMetadataColumns[name]
	return ok
}

// RecordUpdate is a sparse set of ProcessingRecord fields. A nil member means
// "leave the stored value untouched"; slices use nil for untouched and an
// allocated (possibly empty) slice for overwrite.
type RecordUpdate struct {
	GridRows   *int
	GridCols   *int
	GridSource *string

	RowBoundaries []int
	ColBoundaries []int
	CropPaths     []string
	ExtractionDir *string

	Metadata map[string]string
}

// RecordRepository owns the processing_records table. All derived-result
// writes flow through UpsertMerge so partial data never erases prior work.
type RecordRepository struct {
	DB      *gorm.DB
	sqlDB   *sql.DB
	Retries int
}

// NewRecordRepository creates a new instance of RecordRepository
func NewRecordRepository(db *gorm.DB, retries int) (*RecordRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return &RecordRepository{DB: db, sqlDB: sqlDB, Retries: retries}, nil
}

// Find retrieves the processing record for an entity. returns nil without
// error when no record exists yet.
func (r *RecordRepository) Find(entityID string) (*models.ProcessingRecord, error) {
	var record models.ProcessingRecord
	err := r.DB.Where("entity_id = ?", entityID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find processing record for %s: %w", entityID, err)
	}
	return &record, nil
}

// UpsertMerge applies the present fields of upd to the entity's record,
// creating the record if needed. Each present field overwrites the stored
// value; absent fields stay untouched. The whole merge commits in one
// transaction or not at all.
func (r *RecordRepository) UpsertMerge(entityID string, upd RecordUpdate) error {
	cols, err := r.buildColumns(upd)
	if err != nil {
		return err
	}

	return withRetries("record upsert_merge", r.Retries, func() error {
		tx, err := r.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin merge transaction for %s: %w", entityID, err)
		}
		defer tx.Rollback()

		if _, err := database.EnsureRecordExists(tx, entityID); err != nil {
			return err
		}
		if err := database.UpdateRecordColumns(tx, entityID, cols); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit merge for %s: %w", entityID, err)
		}
		return nil
	})
}

// buildColumns validates upd and flattens it into a sparse column map.
// Validation happens before any write so a bad field leaves the record
// unchanged.
func (r *RecordRepository) buildColumns(upd RecordUpdate) (map[string]interface{}, error) {
	for field := range upd.Metadata {
		if !RecognizedMetadataField(field) {
			return nil, &InvalidMergeFieldError{Field: field}
		}
	}

	cols := map[string]interface{}{}
	if upd.GridRows != nil {
		cols["grid_rows"] = *upd.GridRows
	}
	if upd.GridCols != nil {
		cols["grid_cols"] = *upd.GridCols
	}
	if upd.GridSource != nil {
		cols["grid_source"] = *upd.GridSource
	}
	if upd.RowBoundaries != nil {
		enc, err := models.EncodeInts(upd.RowBoundaries)
		if err != nil {
			return nil, err
		}
		cols["row_boundaries"] = enc
	}
	if upd.ColBoundaries != nil {
		enc, err := models.EncodeInts(upd.ColBoundaries)
		if err != nil {
			return nil, err
		}
		cols["col_boundaries"] = enc
	}
	if upd.CropPaths != nil {
		enc, err := models.EncodeStrings(upd.CropPaths)
		if err != nil {
			return nil, err
		}
		cols["crop_paths"] = enc
	}
	if upd.ExtractionDir != nil {
		cols["extraction_dir"] = *upd.ExtractionDir
	}
	for field, value := range upd.Metadata {
		cols[recognizedMetadataColumns[field]] = value
	}
	return cols, nil
}

// MarkTaskProcessing flips a task's status to processing and clears its
// previous error. task must be "extraction" or "ai".
func (r *RecordRepository) MarkTaskProcessing(entityID, task string) error {
	if task != "extraction" && task != "ai" {
		return fmt.Errorf("invalid task name: %s", task)
	}
	return withRetries("record mark_processing", r.Retries, func() error {
		tx, err := r.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin status transaction for %s: %w", entityID, err)
		}
		defer tx.Rollback()

		if _, err := database.EnsureRecordExists(tx, entityID); err != nil {
			return err
		}
		cols := map[string]interface{}{
			task + "_status": database.StatusProcessing,
			task + "_error":  nil,
		}
		if err := database.UpdateRecordColumns(tx, entityID, cols); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SetTaskResult records a task outcome. A nil taskErr marks the task done;
// otherwise the error text is stored and the status set to error.
func (r *RecordRepository) SetTaskResult(entityID, task string, taskErr error) error {
	if task != "extraction" && task != "ai" {
		return fmt.Errorf("invalid task name: %s", task)
	}
	status := database.StatusDone
	var errStr interface{}
	if taskErr != nil {
		status = database.StatusError
		errStr = taskErr.Error()
	}
	cols := map[string]interface{}{
		task + "_status":       status,
		task + "_processed_at": time.Now().Unix(),
		task + "_error":        errStr,
	}

	return withRetries("record set_task_result", r.Retries, func() error {
		tx, err := r.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin status transaction for %s: %w", entityID, err)
		}
		defer tx.Rollback()

		if _, err := database.EnsureRecordExists(tx, entityID); err != nil {
			return err
		}
		if err := database.UpdateRecordColumns(tx, entityID, cols); err != nil {
			return err
		}
		return tx.Commit()
	})
}
