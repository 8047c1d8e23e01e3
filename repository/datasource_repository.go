package repository

import (
	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// DataSourceRepository provides data access operations for governed data sources.
type DataSourceRepository interface {
	GetAll(tx *gorm.DB) ([]models.DataSource, error)
	GetByID(tx *gorm.DB, id uint) (*models.DataSource, error)
}

type dataSourceRepository struct {
	db *gorm.DB
}

// NewDataSourceRepository creates a new data source repository instance.
func NewDataSourceRepository() DataSourceRepository {
	return &dataSourceRepository{
		db: config.DB,
	}
}

func (r *dataSourceRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *dataSourceRepository) GetAll(tx *gorm.DB) ([]models.DataSource, error) {
	var sources []models.DataSource
	if err := r.conn(tx).Model(models.DataSource{}).Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *dataSourceRepository) GetByID(tx *gorm.DB, id uint) (*models.DataSource, error) {
	var source models.DataSource
	if err := r.conn(tx).Model(models.DataSource{}).Where("id = ?", id).First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}
