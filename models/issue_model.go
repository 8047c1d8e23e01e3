package models

import "time"

// Issue lifecycle states. Resolved issues may be reopened by a later scan;
// acknowledged issues are human-suppressed and never reopened automatically.
const (
	IssueOpen         = "open"
	IssueAcknowledged = "acknowledged"
	IssueResolved     = "resolved"
)

// Issue is one tracked protection finding for a {column, rule} pair.
// Issues are never deleted; resolution is recorded in place for audit.
type Issue struct {
	ID          uint       `gorm:"primaryKey;column:id" json:"id"`
	ColumnID    uint       `gorm:"column:column_id;index" json:"column_id"`
	RuleID      uint       `gorm:"column:rule_id;index" json:"rule_id"`
	Severity    string     `gorm:"column:severity" json:"severity"`
	Status      string     `gorm:"column:status;default:open" json:"status"`
	Description string     `gorm:"column:description" json:"description"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the database table name for Issue model.
func (Issue) TableName() string {
	return "issue"
}
