package repository

import (
	"github.com/sheetlot/scanbackend/models"
)

// EntityRepositoryInterface defines the methods for scan entity data operations
type EntityRepositoryInterface interface {
	GetOrCreate(params NewEntityParams) (*models.ScanEntity, bool, error)
	Find(fingerprint string, side models.SheetSide) (*models.ScanEntity, error)
	GetByID(id string) (*models.ScanEntity, error)
}

// RecordRepositoryInterface defines the methods for processing record operations
type RecordRepositoryInterface interface {
	Find(entityID string) (*models.ProcessingRecord, error)
	UpsertMerge(entityID string, upd RecordUpdate) error
	MarkTaskProcessing(entityID, task string) error
	SetTaskResult(entityID, task string, taskErr error) error
}

// ActivityRepositoryInterface defines the methods for activity log operations
type ActivityRepositoryInterface interface {
	Append(sessionID string, entityID *string, action models.ActivityAction, detail string) error
	ListBySession(sessionID string, limit int) ([]models.ActivityEntry, error)
}
