package repository

import (
	"errors"

	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// OverrideRepository provides data access operations for the manual override log.
// The log is append-only; corrections are recorded as newer entries.
type OverrideRepository interface {
	Create(tx *gorm.DB, override *models.ManualOverride) error
	GetLatestByColumn(tx *gorm.DB, columnID uint) (*models.ManualOverride, error)
	GetAll(tx *gorm.DB) ([]models.ManualOverride, error)
}

type overrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository creates a new override repository instance.
func NewOverrideRepository() OverrideRepository {
	return &overrideRepository{
		db: config.DB,
	}
}

func (r *overrideRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *overrideRepository) Create(tx *gorm.DB, override *models.ManualOverride) error {
	return r.conn(tx).Create(override).Error
}

// GetLatestByColumn returns the newest override for a column, or nil when none exists.
func (r *overrideRepository) GetLatestByColumn(tx *gorm.DB, columnID uint) (*models.ManualOverride, error) {
	var override models.ManualOverride
	err := r.conn(tx).Model(models.ManualOverride{}).
		Where("column_id = ?", columnID).
		Order("created_at DESC, id DESC").
		First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *overrideRepository) GetAll(tx *gorm.DB) ([]models.ManualOverride, error) {
	var overrides []models.ManualOverride
	if err := r.conn(tx).Model(models.ManualOverride{}).Order("created_at, id").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}
