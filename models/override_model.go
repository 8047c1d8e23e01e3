package models

import "time"

// ManualOverride is a human-asserted classification for a column. The log is
// append-only; only the newest record per column is authoritative and it is
// the highest-priority input to the decision fuser.
type ManualOverride struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	ColumnID    uint      `gorm:"column:column_id;index" json:"column_id"`
	IsSensitive bool      `gorm:"column:is_sensitive" json:"is_sensitive"`
	Category    string    `gorm:"column:category" json:"category,omitempty"`
	Reason      string    `gorm:"column:reason" json:"reason"`
	Author      string    `gorm:"column:author" json:"author"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName returns the database table name for ManualOverride model.
func (ManualOverride) TableName() string {
	return "manual_override"
}
