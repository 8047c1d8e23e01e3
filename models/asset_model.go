package models

// CatalogAsset represents one database on a data source as discovered by the
// catalog crawler. DatabaseName is asset-level and is the half of the
// connection composition the Protection Validator must take from here.
type CatalogAsset struct {
	ID           uint   `gorm:"primaryKey;column:id" json:"id"`
	DataSourceID uint   `gorm:"column:data_source_id;index" json:"data_source_id"`
	DatabaseName string `gorm:"column:database_name" json:"database_name"`
	Status       string `gorm:"column:status;default:active" json:"status"`
}

// TableName returns the database table name for CatalogAsset model.
func (CatalogAsset) TableName() string {
	return "catalog_asset"
}
