package models

// DataSource represents a governed database server connection record.
// Holds server-level parameters only (host, port, credentials). The database
// name used for live validation always comes from the CatalogAsset, never
// from here - one server connection may serve many databases.
type DataSource struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"column:name" json:"name"`                      // Connection display name
	SourceType  string `gorm:"column:source_type" json:"source_type"`        // Database engine type (mysql, mariadb, ...)
	Host        string `gorm:"column:host" json:"host"`                      // Database server host
	Port        int    `gorm:"column:port" json:"port"`                      // Database server port
	Username    string `gorm:"column:username" json:"username"`              // Authentication username
	Password    string `gorm:"column:password" json:"-"`                     // Authentication password, never serialized
	Status      string `gorm:"column:status;default:enabled" json:"status"`  // enabled/disabled for scanning
	Description string `gorm:"column:description" json:"description,omitempty"`
}

// TableName returns the database table name for DataSource model.
func (DataSource) TableName() string {
	return "data_source"
}
