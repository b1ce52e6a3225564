package models

import (
	"encoding/json"
	"fmt"
)

// GridSource records how a grid value came to be stored.
const (
	GridSourceDetected     = "detected"
	GridSourceCrossSynced  = "cross_synced"
	GridSourceStored       = "stored"
	GridSourceUserAdjusted = "user_adjusted"
)

// ProcessingRecord holds the derived results for exactly one ScanEntity.
// Every field except the owner key is optional; writes go through the
// merge-on-write path so a partial update never nulls untouched columns.
type ProcessingRecord struct {
	EntityID string `gorm:"primaryKey" json:"entity_id"`

	GridRows   *int    `gorm:"" json:"grid_rows,omitempty"`
	GridCols   *int    `gorm:"" json:"grid_cols,omitempty"`
	GridSource *string `gorm:"" json:"grid_source,omitempty"`

	// JSON-encoded ordered sequences (see EncodeInts / EncodeStrings)
	RowBoundaries *string `gorm:"" json:"row_boundaries,omitempty"`
	ColBoundaries *string `gorm:"" json:"col_boundaries,omitempty"`
	CropPaths     *string `gorm:"" json:"crop_paths,omitempty"`

	ExtractionDir *string `gorm:"" json:"extraction_dir,omitempty"`

	// extracted metadata bag; recognized fields only (see repository validation)
	Title       *string `gorm:"" json:"title,omitempty"`
	Description *string `gorm:"" json:"description,omitempty"`
	Condition   *string `gorm:"" json:"condition,omitempty"`
	Price       *string `gorm:"" json:"price,omitempty"`
	Year        *string `gorm:"" json:"year,omitempty"`
	Publisher   *string `gorm:"" json:"publisher,omitempty"`
	Country     *string `gorm:"" json:"country,omitempty"`

	// async task bookkeeping (observational; never read by grid resolution).
	// the AI columns carry explicit names: gorm's strategy would split the
	// initialism (AIProcessedAt -> a_iprocessed_at) and the squirrel merge
	// layer addresses these columns by name
	ExtractionStatus string `gorm:"not null;default:pending" json:"extraction_status"`
	AIStatus         string `gorm:"column:ai_status;not null;default:pending" json:"ai_status"`

	ExtractionProcessedAt *int64 `gorm:"" json:"extraction_processed_at,omitempty"`
	AIProcessedAt         *int64 `gorm:"column:ai_processed_at" json:"ai_processed_at,omitempty"`

	ExtractionError *string `gorm:"" json:"extraction_error,omitempty"`
	AIError         *string `gorm:"column:ai_error" json:"ai_error,omitempty"`

	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (ProcessingRecord) TableName() string {
	return "processing_records"
}

// GridResolved reports whether both grid dimensions are present.
func (r *ProcessingRecord) GridResolved() bool {
	return r != nil && r.GridRows != nil && r.GridCols != nil
}

// MetadataFields returns the present metadata bag entries by field name.
func (r *ProcessingRecord) MetadataFields() map[string]string {
	out := map[string]string{}
	put := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	put("title", r.Title)
	put("description", r.Description)
	put("condition", r.Condition)
	put("price", r.Price)
	put("year", r.Year)
	put("publisher", r.Publisher)
	put("country", r.Country)
	return out
}

// EncodeInts serializes an ordered boundary sequence for storage.
func EncodeInts(vals []int) (string, error) {
	b, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("failed to encode int sequence: %w", err)
	}
	return string(b), nil
}

// DecodeInts parses a stored boundary sequence. A nil column yields nil.
func DecodeInts(col *string) ([]int, error) {
	if col == nil || *col == "" {
		return nil, nil
	}
	var vals []int
	if err := json.Unmarshal([]byte(*col), &vals); err != nil {
		return nil, fmt.Errorf("failed to decode int sequence %q: %w", *col, err)
	}
	return vals, nil
}

// EncodeStrings serializes an ordered path sequence for storage.
func EncodeStrings(vals []string) (string, error) {
	b, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("failed to encode string sequence: %w", err)
	}
	return string(b), nil
}

// DecodeStrings parses a stored path sequence. A nil column yields nil.
func DecodeStrings(col *string) ([]string, error) {
	if col == nil || *col == "" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(*col), &vals); err != nil {
		return nil, fmt.Errorf("failed to decode string sequence %q: %w", *col, err)
	}
	return vals, nil
}
