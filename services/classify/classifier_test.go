package classify

import (
	"testing"

	"datagovapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyColumn_NoMatch(t *testing.T) {
	col := &models.CatalogColumn{Table: "orders", Name: "order_total"}
	rules := []models.RuleDefinition{enabledRule(101, "email", "email")}

	assert.Nil(t, ClassifyColumn(col, rules))
}

func TestClassifyColumn_SkipsDisabledRules(t *testing.T) {
	col := &models.CatalogColumn{Table: "users", Name: "email_addr"}
	rule := enabledRule(102, "email", "email")
	rule.Enabled = false

	assert.Nil(t, ClassifyColumn(col, []models.RuleDefinition{rule}))
}

func TestClassifyColumn_BaselineConfidence(t *testing.T) {
	col := &models.CatalogColumn{Table: "users", Name: "email_addr"}
	cand := ClassifyColumn(col, []models.RuleDefinition{enabledRule(103, "email", "email")})

	require.NotNil(t, cand)
	assert.Equal(t, "email", cand.Rule.Category)
	assert.Equal(t, NameMatchConfidence, cand.Confidence)
	assert.False(t, cand.PatternConfirmed)
}

func TestClassifyColumn_ValuePatternRaisesConfidence(t *testing.T) {
	col := &models.CatalogColumn{Table: "users", Name: "email_addr"}
	require.NoError(t, col.SetSamples([]string{"a@example.com", "b@example.com", "junk"}))

	rule := enabledRule(104, "email", "email")
	rule.ValuePattern = `^[^@\s]+@[^@\s]+$`
	rule.Version = 2

	cand := ClassifyColumn(col, []models.RuleDefinition{rule})
	require.NotNil(t, cand)
	assert.True(t, cand.PatternConfirmed)
	assert.Equal(t, PatternConfirmConfidence, cand.Confidence)
}

func TestClassifyColumn_PatternConfirmationWinsTieBreak(t *testing.T) {
	col := &models.CatalogColumn{Table: "users", Name: "contact_value"}
	require.NoError(t, col.SetSamples([]string{"a@example.com", "b@example.com"}))

	// Both rules match on name; only the email rule's pattern confirms.
	emailRule := enabledRule(105, "email", "contact")
	emailRule.ValuePattern = `@`
	emailRule.Tier = models.TierLow
	phoneRule := enabledRule(106, "phone", "contact")
	phoneRule.Tier = models.TierCritical

	cand := ClassifyColumn(col, []models.RuleDefinition{phoneRule, emailRule})
	require.NotNil(t, cand)
	assert.Equal(t, "email", cand.Rule.Category, "pattern confirmation beats tier")
}

func TestClassifyColumn_TierThenIDTieBreak(t *testing.T) {
	col := &models.CatalogColumn{Table: "users", Name: "contact_value"}

	low := enabledRule(107, "low_cat", "contact")
	low.Tier = models.TierLow
	high := enabledRule(108, "high_cat", "contact")
	high.Tier = models.TierCritical

	cand := ClassifyColumn(col, []models.RuleDefinition{low, high})
	require.NotNil(t, cand)
	assert.Equal(t, "high_cat", cand.Rule.Category, "higher tier wins among name-only matches")

	// Equal tiers fall back to the lower rule ID.
	high2 := enabledRule(109, "high_cat2", "contact")
	high2.Tier = models.TierCritical
	cand = ClassifyColumn(col, []models.RuleDefinition{high2, high})
	require.NotNil(t, cand)
	assert.Equal(t, "high_cat", cand.Rule.Category)
}
