package scan

import (
	"datagovapi/config"
	"datagovapi/models"
	"datagovapi/repository"
	"datagovapi/services/classify"
)

// Impact previews what a rule edit would change before it is saved. Computed
// from cached catalog state only; no live source is touched and nothing is
// written.
type Impact struct {
	AffectedColumns     int      `json:"affected_columns"`
	AffectedTables      int      `json:"affected_tables"`
	AffectedDataSources int      `json:"affected_data_sources"`
	NewlyMatched        int      `json:"newly_matched"`
	Unmatched           int      `json:"unmatched"`
	SampleColumns       []string `json:"sample_columns"`
}

// PreviewImpact evaluates a draft rule against the catalog and reports which
// columns would change category. Manually overridden columns are excluded
// because overrides outrank every rule.
func PreviewImpact(
	columnRepo repository.ColumnRepository,
	ruleRepo repository.RuleRepository,
	overrideRepo repository.OverrideRepository,
	draft *models.RuleDefinition,
) (*Impact, error) {
	columns, current, overridden, err := loadPreviewState(columnRepo, ruleRepo, overrideRepo)
	if err != nil {
		return nil, err
	}

	// The draft replaces its current version in the hypothetical rule set, or
	// joins it when the category is new. Bump the version past anything the
	// matcher cache may hold so draft hints are compiled fresh.
	proposed := make([]models.RuleDefinition, 0, len(current)+1)
	replaced := false
	maxVersion := 0
	for _, r := range current {
		if r.Version > maxVersion {
			maxVersion = r.Version
		}
	}
	hypothetical := *draft
	hypothetical.Version = maxVersion + 1
	if hypothetical.ID == 0 {
		// Unsaved drafts need a cache key that cannot collide with a real rule.
		hypothetical.ID = ^uint(0)
	}
	for _, r := range current {
		if r.Category == draft.Category {
			proposed = append(proposed, hypothetical)
			replaced = true
			continue
		}
		proposed = append(proposed, r)
	}
	if !replaced {
		proposed = append(proposed, hypothetical)
	}
	defer classify.InvalidateMatcher(hypothetical.ID)

	return diffImpact(columns, overridden, current, proposed, draft.Category), nil
}

// PreviewImpactForRule reports the current catalog footprint of a saved rule:
// the columns it wins against the rest of the rule set, computed by diffing
// the catalog with and without the rule.
func PreviewImpactForRule(
	columnRepo repository.ColumnRepository,
	ruleRepo repository.RuleRepository,
	overrideRepo repository.OverrideRepository,
	ruleID uint,
) (*Impact, error) {
	rule, err := ruleRepo.GetByID(nil, ruleID)
	if err != nil {
		return nil, err
	}
	columns, current, overridden, err := loadPreviewState(columnRepo, ruleRepo, overrideRepo)
	if err != nil {
		return nil, err
	}

	without := make([]models.RuleDefinition, 0, len(current))
	for _, r := range current {
		if r.ID != ruleID {
			without = append(without, r)
		}
	}
	return diffImpact(columns, overridden, without, current, rule.Category), nil
}

func loadPreviewState(
	columnRepo repository.ColumnRepository,
	ruleRepo repository.RuleRepository,
	overrideRepo repository.OverrideRepository,
) ([]models.CatalogColumn, []models.RuleDefinition, map[uint]bool, error) {
	columns, err := columnRepo.GetAll(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	rules, err := ruleRepo.GetAll(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	overrides, err := overrideRepo.GetAll(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	overridden := make(map[uint]bool, len(overrides))
	for i := range overrides {
		overridden[overrides[i].ColumnID] = true
	}
	return columns, rules, overridden, nil
}

// diffImpact compares classification winners under two rule sets and counts
// the columns whose category would move, attributing new matches and
// un-matches to the given category.
func diffImpact(
	columns []models.CatalogColumn,
	overridden map[uint]bool,
	current, proposed []models.RuleDefinition,
	category string,
) *Impact {
	impact := &Impact{SampleColumns: []string{}}
	tables := make(map[string]struct{})
	sources := make(map[uint]struct{})
	limit := config.Cfg.ImpactSampleLimit

	// Two passes keep the matcher cache stable: alternating between the
	// current and proposed version of the edited rule per column would force
	// a recompile on every evaluation.
	before := make(map[uint]string, len(columns))
	for i := range columns {
		col := &columns[i]
		if config.IsSystemSchema(col.SchemaName) || overridden[col.ID] {
			continue
		}
		before[col.ID] = winningCategory(col, current)
	}

	for i := range columns {
		col := &columns[i]
		if config.IsSystemSchema(col.SchemaName) || overridden[col.ID] {
			continue
		}

		after := winningCategory(col, proposed)
		if before[col.ID] == after {
			continue
		}

		impact.AffectedColumns++
		tables[col.Table] = struct{}{}
		sources[col.DataSourceID] = struct{}{}
		if after == category {
			impact.NewlyMatched++
		}
		if before[col.ID] == category {
			impact.Unmatched++
		}
		if len(impact.SampleColumns) < limit {
			impact.SampleColumns = append(impact.SampleColumns, col.QualifiedName())
		}
	}

	impact.AffectedTables = len(tables)
	impact.AffectedDataSources = len(sources)
	return impact
}

func winningCategory(col *models.CatalogColumn, rules []models.RuleDefinition) string {
	if cand := classify.ClassifyColumn(col, rules); cand != nil {
		return cand.Rule.Category
	}
	return ""
}
