package issue

import (
	"fmt"
	"sync"
	"time"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
)

// SyncResult counts the transitions one synchronization pass applied.
type SyncResult struct {
	Opened   int `json:"opened"`
	Reopened int `json:"reopened"`
	Resolved int `json:"resolved"`
}

func (r *SyncResult) add(other SyncResult) {
	r.Opened += other.Opened
	r.Reopened += other.Reopened
	r.Resolved += other.Resolved
}

// SyncService reconciles validation findings with the issue ledger. Every
// transition goes through here so the state machine stays consistent:
// open and resolved flip back and forth with the observed protection state,
// acknowledged is terminal for automated transitions, and monitoring-mode
// rules never hold open issues.
type SyncService struct {
	issueRepo repository.IssueRepository

	// Per {column, rule} locks serialize concurrent scan workers touching the
	// same pair so at most one live issue exists per pair.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncService creates an issue synchronizer backed by the given repository.
func NewSyncService(issueRepo repository.IssueRepository) *SyncService {
	return &SyncService{
		issueRepo: issueRepo,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *SyncService) pairLock(columnID, ruleID uint) *sync.Mutex {
	key := fmt.Sprintf("%d:%d", columnID, ruleID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// Apply reconciles one column's validated protection state against its rule.
// Idempotent: re-applying the same observation produces no new transitions.
// An unknown protection state preserves the ledger untouched because an
// unreachable source is not evidence in either direction.
func (s *SyncService) Apply(col *models.CatalogColumn, rule *models.RuleDefinition, protectionStatus string) (SyncResult, error) {
	lock := s.pairLock(col.ID, rule.ID)
	lock.Lock()
	defer lock.Unlock()

	var result SyncResult

	latest, err := s.issueRepo.GetLatestByColumnAndRule(nil, col.ID, rule.ID)
	if err != nil {
		return result, err
	}

	// Monitoring-mode and disabled rules mandate nothing; open and acknowledged
	// issues they left behind are retired regardless of the protection state.
	// Acknowledged is terminal only against protection verdicts, a rule that
	// stopped mandating protection leaves nothing to acknowledge.
	if rule.MonitoringMode() || !rule.Enabled {
		if latest != nil && (latest.Status == models.IssueOpen || latest.Status == models.IssueAcknowledged) {
			if err := s.resolve(latest, fmt.Sprintf("rule %s no longer mandates protection", rule.Category)); err != nil {
				return result, err
			}
			result.Resolved++
		}
		return result, nil
	}

	switch protectionStatus {
	case models.ProtectionUnprotected:
		switch {
		case latest == nil:
			if err := s.open(col, rule); err != nil {
				return result, err
			}
			result.Opened++
		case latest.Status == models.IssueResolved:
			if err := s.reopen(latest, col, rule); err != nil {
				return result, err
			}
			result.Reopened++
		default:
			// Already open or acknowledged, nothing to do. An acknowledged
			// issue records a human decision and scans never override it.
		}

	case models.ProtectionProtected:
		if latest != nil && latest.Status == models.IssueOpen {
			if err := s.resolve(latest, fmt.Sprintf("column %s now stores protected values", col.QualifiedName())); err != nil {
				return result, err
			}
			result.Resolved++
		}

	case models.ProtectionUnknown:
		// Source unreachable, leave the ledger as it stands.
	}

	return result, nil
}

// ResolveAsStale resolves every open issue on a column with the given reason.
// Used when a column's category changes or is cleared, which makes issues
// raised under the old category meaningless.
func (s *SyncService) ResolveAsStale(columnID uint, reason string) (int, error) {
	issues, err := s.issueRepo.GetByColumn(nil, columnID)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for i := range issues {
		if issues[i].Status != models.IssueOpen {
			continue
		}
		lock := s.pairLock(columnID, issues[i].RuleID)
		lock.Lock()
		err := s.resolve(&issues[i], reason)
		lock.Unlock()
		if err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// ResolveForRule resolves every open issue raised by a rule. Used when a rule
// is disabled or switched to monitoring mode outside a scan. The monitoring
// transition also retires acknowledged issues, because a monitoring-mode rule
// may never hold an issue in open or acknowledged state; a plain disable
// leaves acknowledged issues as the human left them.
func (s *SyncService) ResolveForRule(ruleID uint, retireAcknowledged bool, reason string) (int, error) {
	issues, err := s.issueRepo.GetByRule(nil, ruleID)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for i := range issues {
		switch issues[i].Status {
		case models.IssueOpen:
		case models.IssueAcknowledged:
			if !retireAcknowledged {
				continue
			}
		default:
			continue
		}
		lock := s.pairLock(issues[i].ColumnID, ruleID)
		lock.Lock()
		err := s.resolve(&issues[i], reason)
		lock.Unlock()
		if err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

func (s *SyncService) open(col *models.CatalogColumn, rule *models.RuleDefinition) error {
	issue := &models.Issue{
		ColumnID:    col.ID,
		RuleID:      rule.ID,
		Severity:    rule.Severity(),
		Status:      models.IssueOpen,
		Description: openDescription(col, rule),
	}
	if err := s.issueRepo.Create(nil, issue); err != nil {
		return err
	}
	logger.Infof("Opened %s issue for column %s under rule %s", issue.Severity, col.QualifiedName(), rule.Category)
	return nil
}

func (s *SyncService) reopen(issue *models.Issue, col *models.CatalogColumn, rule *models.RuleDefinition) error {
	if err := s.issueRepo.UpdateStatus(nil, issue.ID, models.IssueOpen, openDescription(col, rule), nil); err != nil {
		return err
	}
	logger.Infof("Reopened issue %d for column %s under rule %s", issue.ID, col.QualifiedName(), rule.Category)
	return nil
}

func (s *SyncService) resolve(issue *models.Issue, reason string) error {
	now := time.Now()
	if err := s.issueRepo.UpdateStatus(nil, issue.ID, models.IssueResolved, reason, &now); err != nil {
		return err
	}
	logger.Infof("Resolved issue %d: %s", issue.ID, reason)
	return nil
}

func openDescription(col *models.CatalogColumn, rule *models.RuleDefinition) string {
	requirement := "protected"
	switch {
	case rule.RequiresEncryption && rule.RequiresMasking:
		requirement = "encrypted and masked"
	case rule.RequiresEncryption:
		requirement = "encrypted"
	case rule.RequiresMasking:
		requirement = "masked"
	}
	return fmt.Sprintf("column %s is classified %s and must be stored %s, sampled values appear to be cleartext",
		col.QualifiedName(), rule.Category, requirement)
}
