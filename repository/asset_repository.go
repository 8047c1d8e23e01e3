package repository

import (
	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// AssetRepository provides data access operations for catalog assets.
type AssetRepository interface {
	GetAll(tx *gorm.DB) ([]models.CatalogAsset, error)
	GetByID(tx *gorm.DB, id uint) (*models.CatalogAsset, error)
}

type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository instance.
func NewAssetRepository() AssetRepository {
	return &assetRepository{
		db: config.DB,
	}
}

func (r *assetRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *assetRepository) GetAll(tx *gorm.DB) ([]models.CatalogAsset, error) {
	var assets []models.CatalogAsset
	if err := r.conn(tx).Model(models.CatalogAsset{}).Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) GetByID(tx *gorm.DB, id uint) (*models.CatalogAsset, error) {
	var asset models.CatalogAsset
	if err := r.conn(tx).Model(models.CatalogAsset{}).Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}
