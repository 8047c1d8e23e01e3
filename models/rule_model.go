package models

import (
	"strings"
	"time"
)

// Sensitivity tiers for rule definitions, ordered from most to least severe.
const (
	TierCritical = "critical"
	TierHigh     = "high"
	TierMedium   = "medium"
	TierLow      = "low"
)

// RuleDefinition represents a sensitivity category definition.
// Hints are plain substring tokens, never regular expressions themselves;
// the classifier builds the fuzzy matcher from them. Version is bumped on
// every edit so compiled matchers can be cache-invalidated.
type RuleDefinition struct {
	ID                 uint      `gorm:"primaryKey;column:id" json:"id"`
	Category           string    `gorm:"column:category;uniqueIndex" json:"category" validate:"required"` // Stable category key (email, phone, payment_card, ...)
	DisplayName        string    `gorm:"column:display_name" json:"display_name"`                  // Human-readable name shown in dashboards
	Tier               string    `gorm:"column:tier;default:medium" json:"tier" validate:"omitempty,oneof=critical high medium low"` // critical/high/medium/low
	Hints              string    `gorm:"column:hints" json:"hints"`                                // Comma-separated name-hint tokens
	ValuePattern       string    `gorm:"column:value_pattern" json:"value_pattern"`                // Optional value-validation regex, compiled at save time
	RequiresEncryption bool      `gorm:"column:requires_encryption" json:"requires_encryption"`    // Column values must be stored encrypted
	RequiresMasking    bool      `gorm:"column:requires_masking" json:"requires_masking"`          // Column values must be stored masked
	Enabled            bool      `gorm:"column:enabled;default:true" json:"enabled"`               // Disabled rules are skipped by every scan
	Version            int       `gorm:"column:version;default:1" json:"version"`                  // Incremented on edit, drives matcher cache invalidation
	Description        string    `gorm:"column:description" json:"description,omitempty"`          // Human-readable description
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the database table name for RuleDefinition model.
func (RuleDefinition) TableName() string {
	return "rule_definition"
}

// HintList splits the stored comma-separated hints into trimmed tokens.
func (r *RuleDefinition) HintList() []string {
	parts := strings.Split(r.Hints, ",")
	hints := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			hints = append(hints, t)
		}
	}
	return hints
}

// MonitoringMode reports whether the rule tracks a category without mandating
// protection. Monitoring-mode rules must never hold open or acknowledged issues.
func (r *RuleDefinition) MonitoringMode() bool {
	return !r.RequiresEncryption && !r.RequiresMasking
}

// Severity maps the rule's sensitivity tier to the severity assigned to issues.
func (r *RuleDefinition) Severity() string {
	return r.Tier
}

// TierRank returns a numeric rank for tie-breaking, higher is more severe.
func (r *RuleDefinition) TierRank() int {
	switch r.Tier {
	case TierCritical:
		return 4
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}
