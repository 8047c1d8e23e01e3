package services

import (
	"fmt"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services/classify"
	"datagovapi/services/issue"
	"datagovapi/services/scan"
	"datagovapi/utils"
)

// RuleService manages sensitivity rule definitions and keeps the catalog
// consistent with rule changes: every save or toggle invalidates compiled
// matchers and triggers the appropriate rescan.
type RuleService struct {
	baseRepo     repository.BaseRepository
	ruleRepo     repository.RuleRepository
	columnRepo   repository.ColumnRepository
	overrideRepo repository.OverrideRepository
	syncer       *issue.SyncService
	orchestrator *scan.Orchestrator
}

// NewRuleService creates a rule service.
func NewRuleService(
	baseRepo repository.BaseRepository,
	ruleRepo repository.RuleRepository,
	columnRepo repository.ColumnRepository,
	overrideRepo repository.OverrideRepository,
	syncer *issue.SyncService,
	orchestrator *scan.Orchestrator,
) *RuleService {
	return &RuleService{
		baseRepo:     baseRepo,
		ruleRepo:     ruleRepo,
		columnRepo:   columnRepo,
		overrideRepo: overrideRepo,
		syncer:       syncer,
		orchestrator: orchestrator,
	}
}

// List returns rule definitions, optionally filtered by enabled state.
func (s *RuleService) List(enabled *bool) ([]models.RuleDefinition, error) {
	if enabled != nil && *enabled {
		return s.ruleRepo.GetEnabled(nil)
	}
	rules, err := s.ruleRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	if enabled == nil {
		return rules, nil
	}
	disabled := make([]models.RuleDefinition, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			disabled = append(disabled, r)
		}
	}
	return disabled, nil
}

// Get returns one rule by ID.
func (s *RuleService) Get(id uint) (*models.RuleDefinition, error) {
	return s.ruleRepo.GetByID(nil, id)
}

// validateRule rejects rules whose fields, hints or value pattern would not
// survive a scan. Malformed rules must never reach one.
func validateRule(rule *models.RuleDefinition) error {
	if err := utils.ValidateStruct(rule); err != nil {
		return err
	}
	if _, err := classify.CompileHints(rule.HintList()); err != nil {
		return err
	}
	if _, err := classify.CompileValuePattern(rule.ValuePattern); err != nil {
		return err
	}
	return nil
}

// Create validates and stores a new rule, then rescans the catalog so the
// rule takes effect. Returns the rule and the background rescan job ID.
func (s *RuleService) Create(rule *models.RuleDefinition) (*models.RuleDefinition, string, error) {
	if err := validateRule(rule); err != nil {
		return nil, "", err
	}
	rule.Version = 1
	if err := s.ruleRepo.Create(nil, rule); err != nil {
		return nil, "", err
	}
	logger.Infof("Rule %s created (id=%d, tier=%s)", rule.Category, rule.ID, rule.Tier)
	jobID := s.orchestrator.RescanRuleAsync(rule.ID, rule.Category)
	return rule, jobID, nil
}

// Update validates and stores a rule edit. The version bump invalidates the
// compiled matcher cache and a background rescan re-evaluates the catalog.
func (s *RuleService) Update(id uint, updated *models.RuleDefinition) (*models.RuleDefinition, string, error) {
	existing, err := s.ruleRepo.GetByID(nil, id)
	if err != nil {
		return nil, "", err
	}
	if updated.Category != "" && updated.Category != existing.Category {
		return nil, "", fmt.Errorf("rule category is immutable, create a new rule instead")
	}
	wasMonitoring := existing.MonitoringMode()

	existing.DisplayName = updated.DisplayName
	existing.Tier = updated.Tier
	existing.Hints = updated.Hints
	existing.ValuePattern = updated.ValuePattern
	existing.RequiresEncryption = updated.RequiresEncryption
	existing.RequiresMasking = updated.RequiresMasking
	existing.Description = updated.Description
	existing.Version++

	if err := validateRule(existing); err != nil {
		return nil, "", err
	}
	if err := s.ruleRepo.Update(nil, existing); err != nil {
		return nil, "", err
	}
	classify.InvalidateMatcher(existing.ID)
	logger.Infof("Rule %s updated to version %d", existing.Category, existing.Version)

	// Dropping both protection flags switches the rule to monitoring mode,
	// which may never hold open or acknowledged issues. The rescan sweeps
	// columns the rule still matches; this sweep covers the rest.
	if !wasMonitoring && existing.MonitoringMode() {
		retired, err := s.syncer.ResolveForRule(existing.ID, true,
			fmt.Sprintf("rule %s switched to monitoring mode", existing.Category))
		if err != nil {
			return nil, "", err
		}
		logger.Infof("Rule %s switched to monitoring mode, retired %d issues", existing.Category, retired)
	}

	jobID := s.orchestrator.RescanRuleAsync(existing.ID, existing.Category)
	return existing, jobID, nil
}

// SetEnabled toggles a rule. Disabling clears the rule's category from every
// column and resolves its open issues; nothing of the old classification
// survives, so a later re-enable rescans from scratch.
func (s *RuleService) SetEnabled(id uint, enabled bool) (*models.RuleDefinition, string, error) {
	rule, err := s.ruleRepo.GetByID(nil, id)
	if err != nil {
		return nil, "", err
	}
	if rule.Enabled == enabled {
		return rule, "", nil
	}

	var jobID string
	if enabled {
		if err := s.ruleRepo.SetEnabled(nil, id, true); err != nil {
			return nil, "", err
		}
		classify.InvalidateMatcher(id)
		logger.Infof("Rule %s enabled, starting full rescan", rule.Category)
		jobID = s.orchestrator.RescanRuleAsync(id, rule.Category)
	} else {
		// The toggle and the category wipe must land together; a disabled rule
		// whose columns kept their category would look classified forever.
		tx := s.baseRepo.Begin()
		if err := s.ruleRepo.SetEnabled(tx, id, false); err != nil {
			tx.Rollback()
			return nil, "", err
		}
		cleared, err := s.columnRepo.ClearCategory(tx, rule.Category)
		if err != nil {
			tx.Rollback()
			return nil, "", err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, "", err
		}
		classify.InvalidateMatcher(id)

		resolved, err := s.syncer.ResolveForRule(id, rule.MonitoringMode(), fmt.Sprintf("rule %s disabled", rule.Category))
		if err != nil {
			return nil, "", err
		}
		logger.Infof("Rule %s disabled: cleared %d columns, resolved %d issues", rule.Category, cleared, resolved)
	}

	fresh, err := s.ruleRepo.GetByID(nil, id)
	if err != nil {
		return nil, "", err
	}
	return fresh, jobID, nil
}

// PreviewImpact reports what saving a draft rule would change, without
// touching catalog state.
func (s *RuleService) PreviewImpact(draft *models.RuleDefinition) (*scan.Impact, error) {
	if err := validateRule(draft); err != nil {
		return nil, err
	}
	return scan.PreviewImpact(s.columnRepo, s.ruleRepo, s.overrideRepo, draft)
}

// ImpactByID reports the current catalog footprint of a saved rule.
func (s *RuleService) ImpactByID(id uint) (*scan.Impact, error) {
	return scan.PreviewImpactForRule(s.columnRepo, s.ruleRepo, s.overrideRepo, id)
}

// Rescan launches a background rescan for one saved rule and returns the
// tracking job ID.
func (s *RuleService) Rescan(id uint) (string, error) {
	rule, err := s.ruleRepo.GetByID(nil, id)
	if err != nil {
		return "", err
	}
	if !rule.Enabled {
		return "", fmt.Errorf("rule %s is disabled, enable it before rescanning", rule.Category)
	}
	logger.Infof("Operator rescan requested for rule %s", rule.Category)
	return s.orchestrator.RescanRuleAsync(rule.ID, rule.Category), nil
}
