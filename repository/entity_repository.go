package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/models"
)

// EntityRepository handles database operations for ScanEntity rows. It is
// the only component that assigns entity ids.
type EntityRepository struct {
	DB      *gorm.DB
	Retries int
}

// NewEntityRepository creates a new instance of EntityRepository
func NewEntityRepository(db *gorm.DB, retries int) *EntityRepository {
	return &EntityRepository{DB: db, Retries: retries}
}

// NewEntityParams carries the attributes recorded when an entity is first seen.
type NewEntityParams struct {
	Fingerprint  string
	Side         models.SheetSide
	OriginalName string
	ByteSize     int64
	PixelWidth   *int
	PixelHeight  *int
	StoredPath   *string
}

// GetOrCreate returns the entity for (fingerprint, side), creating it on
// first sight. Re-uploads of identical bytes update LastSeenAt and return
// the existing row; a duplicate-insert race is recovered by a re-fetch and
// never surfaced.
func (r *EntityRepository) GetOrCreate(params NewEntityParams) (*models.ScanEntity, bool, error) {
	var entity *models.ScanEntity
	var created bool

	err := withRetries("entity get_or_create", r.Retries, func() error {
		found, err := r.Find(params.Fingerprint, params.Side)
		if err != nil {
			return err
		}
		if found != nil {
			now := time.Now().Unix()
			if err := r.DB.Model(found).Update("last_seen_at", now).Error; err != nil {
				return fmt.Errorf("failed to touch entity %s: %w", found.ID, err)
			}
			found.LastSeenAt = now
			entity, created = found, false
			return nil
		}

		now := time.Now().Unix()
		fresh := &models.ScanEntity{
			ID:           uuid.NewString(),
			Fingerprint:  params.Fingerprint,
			Side:         params.Side,
			OriginalName: params.OriginalName,
			ByteSize:     params.ByteSize,
			PixelWidth:   params.PixelWidth,
			PixelHeight:  params.PixelHeight,
			StoredPath:   params.StoredPath,
			FirstSeenAt:  now,
			LastSeenAt:   now,
		}
		if err := r.DB.Create(fresh).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// another caller won the insert race; their row is ours
				raced, ferr := r.Find(params.Fingerprint, params.Side)
				if ferr != nil {
					return ferr
				}
				if raced == nil {
					return fmt.Errorf("entity vanished after duplicate-key race for (%s, %s)", params.Fingerprint, params.Side)
				}
				entity, created = raced, false
				return nil
			}
			return fmt.Errorf("failed to create entity for (%s, %s): %w", params.Fingerprint, params.Side, err)
		}
		entity, created = fresh, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return entity, created, nil
}

// Find is a read-only lookup by (fingerprint, side); it never creates.
// returns nil without error when no entity exists.
func (r *EntityRepository) Find(fingerprint string, side models.SheetSide) (*models.ScanEntity, error) {
	var entity models.ScanEntity
	err := r.DB.Where("fingerprint = ? AND side = ?", fingerprint, side).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity for (%s, %s): %w", fingerprint, side, err)
	}
	return &entity, nil
}

// GetByID retrieves an entity by its id.
func (r *EntityRepository) GetByID(id string) (*models.ScanEntity, error) {
	var entity models.ScanEntity
	err := r.DB.Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get entity %s: %w", id, err)
	}
	return &entity, nil
}
