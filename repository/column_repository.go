package repository

import (
	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// ColumnFilter narrows column listings to a data source, database or table.
type ColumnFilter struct {
	DataSourceID uint
	Database     string
	Table        string
}

// ColumnRepository provides data access operations for cataloged columns.
// Only the classification-owned fields are ever updated here; discovery
// fields belong to the catalog crawler.
type ColumnRepository interface {
	List(tx *gorm.DB, filter ColumnFilter) ([]models.CatalogColumn, error)
	GetAll(tx *gorm.DB) ([]models.CatalogColumn, error)
	GetByID(tx *gorm.DB, id uint) (*models.CatalogColumn, error)
	UpdateClassification(tx *gorm.DB, id uint, category string, sensitive bool) error
	UpdateProtectionStatus(tx *gorm.DB, id uint, status string) error
	ClearCategory(tx *gorm.DB, category string) (int64, error)
}

type columnRepository struct {
	db *gorm.DB
}

// NewColumnRepository creates a new column repository instance.
func NewColumnRepository() ColumnRepository {
	return &columnRepository{
		db: config.DB,
	}
}

func (r *columnRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *columnRepository) List(tx *gorm.DB, filter ColumnFilter) ([]models.CatalogColumn, error) {
	q := r.conn(tx).Table(models.CatalogColumn{}.TableName() + " as col")
	if filter.Database != "" {
		q = q.Joins("join catalog_asset asset on asset.id = col.asset_id").
			Where("asset.database_name = ?", filter.Database)
	}
	if filter.DataSourceID != 0 {
		q = q.Where("col.data_source_id = ?", filter.DataSourceID)
	}
	if filter.Table != "" {
		q = q.Where("col.table_name = ?", filter.Table)
	}

	var columns []models.CatalogColumn
	if err := q.Order("col.id").Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *columnRepository) GetAll(tx *gorm.DB) ([]models.CatalogColumn, error) {
	var columns []models.CatalogColumn
	if err := r.conn(tx).Model(models.CatalogColumn{}).Order("id").Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *columnRepository) GetByID(tx *gorm.DB, id uint) (*models.CatalogColumn, error) {
	var column models.CatalogColumn
	if err := r.conn(tx).Model(models.CatalogColumn{}).Where("id = ?", id).First(&column).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

func (r *columnRepository) UpdateClassification(tx *gorm.DB, id uint, category string, sensitive bool) error {
	return r.conn(tx).Model(models.CatalogColumn{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":     category,
			"is_sensitive": sensitive,
		}).Error
}

func (r *columnRepository) UpdateProtectionStatus(tx *gorm.DB, id uint, status string) error {
	return r.conn(tx).Model(models.CatalogColumn{}).Where("id = ?", id).
		Update("protection_status", status).Error
}

// ClearCategory removes a category assignment from every column holding it.
// Used when a rule is disabled; re-enable forces a full rescan from scratch.
func (r *columnRepository) ClearCategory(tx *gorm.DB, category string) (int64, error) {
	res := r.conn(tx).Model(models.CatalogColumn{}).Where("category = ?", category).
		Updates(map[string]interface{}{
			"category":          "",
			"is_sensitive":      false,
			"protection_status": models.ProtectionUnknown,
		})
	return res.RowsAffected, res.Error
}
