package issue

import (
	"fmt"
	"time"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
)

// LedgerService serves operator-facing issue operations: listing the ledger
// and the manual transitions (acknowledge, resolve) the state machine allows.
type LedgerService struct {
	issueRepo repository.IssueRepository
}

// NewLedgerService creates an issue ledger service.
func NewLedgerService(issueRepo repository.IssueRepository) *LedgerService {
	return &LedgerService{issueRepo: issueRepo}
}

// List returns issues matching the filter, newest first.
func (s *LedgerService) List(filter repository.IssueFilter) ([]models.Issue, error) {
	return s.issueRepo.List(nil, filter)
}

// Get returns one issue by ID.
func (s *LedgerService) Get(id uint) (*models.Issue, error) {
	return s.issueRepo.GetByID(nil, id)
}

// Acknowledge marks an open issue as a known, accepted risk. Acknowledged
// issues are terminal for automated transitions; later scans will not reopen
// or resolve them.
func (s *LedgerService) Acknowledge(id uint, author, note string) (*models.Issue, error) {
	issue, err := s.issueRepo.GetByID(nil, id)
	if err != nil {
		return nil, err
	}
	if issue.Status != models.IssueOpen {
		return nil, fmt.Errorf("issue %d is %s, only open issues can be acknowledged", id, issue.Status)
	}

	description := issue.Description
	if note != "" {
		description = fmt.Sprintf("%s | acknowledged by %s: %s", issue.Description, author, note)
	}
	if err := s.issueRepo.UpdateStatus(nil, id, models.IssueAcknowledged, description, nil); err != nil {
		return nil, err
	}
	logger.Infof("Issue %d acknowledged by %s", id, author)
	return s.issueRepo.GetByID(nil, id)
}

// Resolve closes an issue by operator decision. Both open and acknowledged
// issues can be resolved manually.
func (s *LedgerService) Resolve(id uint, author, note string) (*models.Issue, error) {
	issue, err := s.issueRepo.GetByID(nil, id)
	if err != nil {
		return nil, err
	}
	if issue.Status == models.IssueResolved {
		return issue, nil
	}

	description := fmt.Sprintf("%s | resolved by %s", issue.Description, author)
	if note != "" {
		description += ": " + note
	}
	now := time.Now()
	if err := s.issueRepo.UpdateStatus(nil, id, models.IssueResolved, description, &now); err != nil {
		return nil, err
	}
	logger.Infof("Issue %d resolved by %s", id, author)
	return s.issueRepo.GetByID(nil, id)
}
