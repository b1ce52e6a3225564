package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/models"
)

// ActivityRepository appends to and lists the append-only activity log.
// Entries are never updated or deleted.
type ActivityRepository struct {
	DB      *gorm.DB
	Retries int
}

// NewActivityRepository creates a new instance of ActivityRepository
func NewActivityRepository(db *gorm.DB, retries int) *ActivityRepository {
	return &ActivityRepository{DB: db, Retries: retries}
}

// Append writes one audit fact.
func (r *ActivityRepository) Append(sessionID string, entityID *string, action models.ActivityAction, detail string) error {
	if !models.ValidAction(action) {
		return fmt.Errorf("invalid activity action: %s", action)
	}
	entry := models.ActivityEntry{
		SessionID: sessionID,
		EntityID:  entityID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().Unix(),
	}
	return withRetries("activity append", r.Retries, func() error {
		if err := r.DB.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append activity for session %s: %w", sessionID, err)
		}
		return nil
	})
}

// ListBySession returns a session's entries, newest first. Diagnostic only;
// resolution never reads this.
func (r *ActivityRepository) ListBySession(sessionID string, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.ActivityEntry
	err := r.DB.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity for session %s: %w", sessionID, err)
	}
	return entries, nil
}
