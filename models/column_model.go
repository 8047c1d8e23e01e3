package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protection status values for catalog columns.
const (
	ProtectionUnknown     = "unknown"
	ProtectionProtected   = "protected"
	ProtectionUnprotected = "unprotected"
)

// CatalogColumn identifies one column of a cataloged table plus the
// classification fields owned by the scanning engine. The catalog crawler
// owns discovery and deletion; the engine only mutates Category, IsSensitive
// and ProtectionStatus.
type CatalogColumn struct {
	ID               uint      `gorm:"primaryKey;column:id" json:"id"`
	DataSourceID     uint      `gorm:"column:data_source_id;index" json:"data_source_id"`
	AssetID          uint      `gorm:"column:asset_id;index" json:"asset_id"`
	SchemaName       string    `gorm:"column:schema_name" json:"schema_name,omitempty"`
	Table            string    `gorm:"column:table_name" json:"table_name"`
	Name             string    `gorm:"column:column_name" json:"column_name"`
	DeclaredType     string    `gorm:"column:declared_type" json:"declared_type"`
	Category         string    `gorm:"column:category" json:"category,omitempty"`         // Assigned sensitivity category, empty when unclassified
	IsSensitive      bool      `gorm:"column:is_sensitive" json:"is_sensitive"`
	ProtectionStatus string    `gorm:"column:protection_status;default:unknown" json:"protection_status"`
	SampleValues     string    `gorm:"column:sample_values;type:text" json:"-"`           // JSON-encoded cached sample values
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the database table name for CatalogColumn model.
func (CatalogColumn) TableName() string {
	return "catalog_column"
}

// Samples decodes the cached sample values. Returns nil when no samples are cached.
func (c *CatalogColumn) Samples() []string {
	if c.SampleValues == "" {
		return nil
	}
	var samples []string
	if err := json.Unmarshal([]byte(c.SampleValues), &samples); err != nil {
		return nil
	}
	return samples
}

// SetSamples encodes and caches sample values on the column.
func (c *CatalogColumn) SetSamples(samples []string) error {
	raw, err := json.Marshal(samples)
	if err != nil {
		return err
	}
	c.SampleValues = string(raw)
	return nil
}

// QualifiedName returns schema.table.column for logging and issue descriptions.
func (c *CatalogColumn) QualifiedName() string {
	if c.SchemaName != "" {
		return fmt.Sprintf("%s.%s.%s", c.SchemaName, c.Table, c.Name)
	}
	return fmt.Sprintf("%s.%s", c.Table, c.Name)
}
