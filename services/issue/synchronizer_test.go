package issue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"datagovapi/models"
	"datagovapi/repository"
)

// fakeIssueRepo is an in-memory IssueRepository for exercising the state
// machine without a database.
type fakeIssueRepo struct {
	mu     sync.Mutex
	nextID uint
	issues []models.Issue
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{nextID: 1}
}

func (r *fakeIssueRepo) GetLatestByColumnAndRule(_ *gorm.DB, columnID, ruleID uint) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.issues) - 1; i >= 0; i-- {
		if r.issues[i].ColumnID == columnID && r.issues[i].RuleID == ruleID {
			cp := r.issues[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeIssueRepo) GetByColumn(_ *gorm.DB, columnID uint) ([]models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Issue
	for _, iss := range r.issues {
		if iss.ColumnID == columnID {
			out = append(out, iss)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) GetByRule(_ *gorm.DB, ruleID uint) ([]models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Issue
	for _, iss := range r.issues {
		if iss.RuleID == ruleID {
			out = append(out, iss)
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) GetByID(_ *gorm.DB, id uint) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, iss := range r.issues {
		if iss.ID == id {
			cp := iss
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("issue %d not found", id)
}

func (r *fakeIssueRepo) List(_ *gorm.DB, filter repository.IssueFilter) ([]models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Issue
	for i := len(r.issues) - 1; i >= 0; i-- {
		iss := r.issues[i]
		if filter.Status != "" && iss.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && iss.Severity != filter.Severity {
			continue
		}
		out = append(out, iss)
	}
	return out, nil
}

func (r *fakeIssueRepo) Create(_ *gorm.DB, issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue.ID = r.nextID
	r.nextID++
	issue.CreatedAt = time.Now()
	r.issues = append(r.issues, *issue)
	return nil
}

func (r *fakeIssueRepo) UpdateStatus(_ *gorm.DB, id uint, status, description string, resolvedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.issues {
		if r.issues[i].ID == id {
			r.issues[i].Status = status
			r.issues[i].Description = description
			r.issues[i].ResolvedAt = resolvedAt
			return nil
		}
	}
	return fmt.Errorf("issue %d not found", id)
}

func cardColumn() *models.CatalogColumn {
	return &models.CatalogColumn{
		ID:          42,
		Table:       "payments",
		Name:        "card_number",
		Category:    "payment_card",
		IsSensitive: true,
	}
}

func encryptionRule() *models.RuleDefinition {
	return &models.RuleDefinition{
		ID:                 7,
		Category:           "payment_card",
		Tier:               models.TierCritical,
		Enabled:            true,
		RequiresEncryption: true,
	}
}

func TestApply_OpensIssueForUnprotectedColumn(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)

	res, err := s.Apply(cardColumn(), encryptionRule(), models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Opened: 1}, res)

	issues, _ := repo.GetByColumn(nil, 42)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueOpen, issues[0].Status)
	assert.Equal(t, models.TierCritical, issues[0].Severity)
	assert.Contains(t, issues[0].Description, "encrypted")
}

func TestApply_IsIdempotent(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)

	// The same observation again changes nothing.
	res, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)

	issues, _ := repo.GetByColumn(nil, 42)
	assert.Len(t, issues, 1)
}

func TestApply_ResolvesWhenProtected(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)

	res, err := s.Apply(col, rule, models.ProtectionProtected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Resolved: 1}, res)

	issues, _ := repo.GetByColumn(nil, 42)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueResolved, issues[0].Status)
	assert.NotNil(t, issues[0].ResolvedAt)

	// Protected again is a no-op on a resolved ledger.
	res, err = s.Apply(col, rule, models.ProtectionProtected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
}

func TestApply_ReopensResolvedIssueInPlace(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, _ = s.Apply(col, rule, models.ProtectionUnprotected)
	_, _ = s.Apply(col, rule, models.ProtectionProtected)

	res, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Reopened: 1}, res)

	// The existing row transitions back, no duplicate is created.
	issues, _ := repo.GetByColumn(nil, 42)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueOpen, issues[0].Status)
	assert.Nil(t, issues[0].ResolvedAt)
}

func TestApply_AcknowledgedIsTerminalForScans(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, _ = s.Apply(col, rule, models.ProtectionUnprotected)
	issues, _ := repo.GetByColumn(nil, 42)
	_, err := ledger.Acknowledge(issues[0].ID, "dpo", "legacy system, migration planned")
	require.NoError(t, err)

	// Neither observation moves an acknowledged issue.
	res, err := s.Apply(col, rule, models.ProtectionProtected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)

	res, err = s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)

	got, _ := repo.GetByID(nil, issues[0].ID)
	assert.Equal(t, models.IssueAcknowledged, got.Status)
}

func TestApply_MonitoringModeForcesResolve(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, _ = s.Apply(col, rule, models.ProtectionUnprotected)

	// The rule drops its protection mandate.
	rule.RequiresEncryption = false
	res, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Resolved: 1}, res)

	// And never opens new issues while monitoring.
	res, err = s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
}

func TestApply_MonitoringModeRetiresAcknowledged(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, _ = s.Apply(col, rule, models.ProtectionUnprotected)
	issues, _ := repo.GetByColumn(nil, 42)
	_, err := ledger.Acknowledge(issues[0].ID, "dpo", "accepted risk")
	require.NoError(t, err)

	// A monitoring-mode rule may never hold open or acknowledged issues.
	rule.RequiresEncryption = false
	res, err := s.Apply(col, rule, models.ProtectionUnprotected)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Resolved: 1}, res)

	got, _ := repo.GetByID(nil, issues[0].ID)
	assert.Equal(t, models.IssueResolved, got.Status)
}

func TestApply_ConcurrentScansOpenOneIssue(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	// Overlapping rescan triggers race on the same {column, rule} pair; the
	// per-pair lock must let exactly one of them create the issue.
	const workers = 8
	results := make([]SyncResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Apply(col, rule, models.ProtectionUnprotected)
		}(i)
	}
	wg.Wait()

	opened := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		opened += results[i].Opened
	}
	assert.Equal(t, 1, opened)

	issues, _ := repo.GetByColumn(nil, 42)
	assert.Len(t, issues, 1)
}

func TestApply_UnknownPreservesLedger(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	col, rule := cardColumn(), encryptionRule()

	_, _ = s.Apply(col, rule, models.ProtectionUnprotected)

	res, err := s.Apply(col, rule, models.ProtectionUnknown)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)

	issues, _ := repo.GetByColumn(nil, 42)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueOpen, issues[0].Status)
}

func TestResolveAsStale(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	rule := encryptionRule()

	_, _ = s.Apply(cardColumn(), rule, models.ProtectionUnprotected)
	other := cardColumn()
	other.ID = 43
	_, _ = s.Apply(other, rule, models.ProtectionUnprotected)

	resolved, err := s.ResolveAsStale(42, "column reclassified")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	issues, _ := repo.GetByColumn(nil, 42)
	assert.Equal(t, models.IssueResolved, issues[0].Status)
	untouched, _ := repo.GetByColumn(nil, 43)
	assert.Equal(t, models.IssueOpen, untouched[0].Status)
}

func TestResolveForRule_SkipsAcknowledged(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)
	rule := encryptionRule()

	_, _ = s.Apply(cardColumn(), rule, models.ProtectionUnprotected)
	other := cardColumn()
	other.ID = 43
	_, _ = s.Apply(other, rule, models.ProtectionUnprotected)

	issues, _ := repo.GetByColumn(nil, 43)
	_, err := ledger.Acknowledge(issues[0].ID, "dpo", "")
	require.NoError(t, err)

	resolved, err := s.ResolveForRule(rule.ID, false, "rule disabled")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	got, _ := repo.GetByID(nil, issues[0].ID)
	assert.Equal(t, models.IssueAcknowledged, got.Status)
}

func TestResolveForRule_MonitoringTransitionRetiresAcknowledged(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)
	rule := encryptionRule()

	_, _ = s.Apply(cardColumn(), rule, models.ProtectionUnprotected)
	other := cardColumn()
	other.ID = 43
	_, _ = s.Apply(other, rule, models.ProtectionUnprotected)

	issues, _ := repo.GetByColumn(nil, 43)
	_, err := ledger.Acknowledge(issues[0].ID, "dpo", "")
	require.NoError(t, err)

	resolved, err := s.ResolveForRule(rule.ID, true, "rule switched to monitoring mode")
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)

	got, _ := repo.GetByID(nil, issues[0].ID)
	assert.Equal(t, models.IssueResolved, got.Status)
}

func TestLedger_AcknowledgeRequiresOpen(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)

	_, _ = s.Apply(cardColumn(), encryptionRule(), models.ProtectionUnprotected)
	issues, _ := repo.GetByColumn(nil, 42)
	id := issues[0].ID

	_, err := ledger.Resolve(id, "dpo", "rotated to vault")
	require.NoError(t, err)

	_, err = ledger.Acknowledge(id, "dpo", "")
	assert.Error(t, err, "resolved issues cannot be acknowledged")
}

func TestLedger_ResolveFromAcknowledged(t *testing.T) {
	repo := newFakeIssueRepo()
	s := NewSyncService(repo)
	ledger := NewLedgerService(repo)

	_, _ = s.Apply(cardColumn(), encryptionRule(), models.ProtectionUnprotected)
	issues, _ := repo.GetByColumn(nil, 42)
	id := issues[0].ID

	_, err := ledger.Acknowledge(id, "dpo", "accepted risk")
	require.NoError(t, err)

	got, err := ledger.Resolve(id, "dpo", "column dropped")
	require.NoError(t, err)
	assert.Equal(t, models.IssueResolved, got.Status)

	// Resolving again is idempotent.
	again, err := ledger.Resolve(id, "dpo", "")
	require.NoError(t, err)
	assert.Equal(t, models.IssueResolved, again.Status)
	assert.Equal(t, got.Description, again.Description)
}
