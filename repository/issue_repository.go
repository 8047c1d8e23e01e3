package repository

import (
	"errors"
	"time"

	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// IssueFilter narrows issue listings.
type IssueFilter struct {
	DataSourceID uint
	Database     string
	Status       string
	Severity     string
}

// IssueRepository provides data access operations for the issue ledger.
// Issues are never deleted; every transition is an in-place status update.
type IssueRepository interface {
	GetLatestByColumnAndRule(tx *gorm.DB, columnID, ruleID uint) (*models.Issue, error)
	GetByColumn(tx *gorm.DB, columnID uint) ([]models.Issue, error)
	GetByRule(tx *gorm.DB, ruleID uint) ([]models.Issue, error)
	GetByID(tx *gorm.DB, id uint) (*models.Issue, error)
	List(tx *gorm.DB, filter IssueFilter) ([]models.Issue, error)
	Create(tx *gorm.DB, issue *models.Issue) error
	UpdateStatus(tx *gorm.DB, id uint, status, description string, resolvedAt *time.Time) error
}

type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new issue repository instance.
func NewIssueRepository() IssueRepository {
	return &issueRepository{
		db: config.DB,
	}
}

func (r *issueRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetLatestByColumnAndRule returns the newest issue for a {column, rule} pair,
// or nil when none exists. The synchronizer relies on there being at most one
// live issue per pair; older resolved duplicates are ignored.
func (r *issueRepository) GetLatestByColumnAndRule(tx *gorm.DB, columnID, ruleID uint) (*models.Issue, error) {
	var issue models.Issue
	err := r.conn(tx).Model(models.Issue{}).
		Where("column_id = ? AND rule_id = ?", columnID, ruleID).
		Order("id DESC").
		First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) GetByColumn(tx *gorm.DB, columnID uint) ([]models.Issue, error) {
	var issues []models.Issue
	if err := r.conn(tx).Model(models.Issue{}).Where("column_id = ?", columnID).Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *issueRepository) GetByRule(tx *gorm.DB, ruleID uint) ([]models.Issue, error) {
	var issues []models.Issue
	if err := r.conn(tx).Model(models.Issue{}).Where("rule_id = ?", ruleID).Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *issueRepository) GetByID(tx *gorm.DB, id uint) (*models.Issue, error) {
	var issue models.Issue
	if err := r.conn(tx).Model(models.Issue{}).Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(tx *gorm.DB, filter IssueFilter) ([]models.Issue, error) {
	q := r.conn(tx).Table(models.Issue{}.TableName() + " as iss")
	if filter.DataSourceID != 0 || filter.Database != "" {
		q = q.Joins("join catalog_column col on col.id = iss.column_id")
		if filter.DataSourceID != 0 {
			q = q.Where("col.data_source_id = ?", filter.DataSourceID)
		}
		if filter.Database != "" {
			q = q.Joins("join catalog_asset asset on asset.id = col.asset_id").
				Where("asset.database_name = ?", filter.Database)
		}
	}
	if filter.Status != "" {
		q = q.Where("iss.status = ?", filter.Status)
	}
	if filter.Severity != "" {
		q = q.Where("iss.severity = ?", filter.Severity)
	}

	var issues []models.Issue
	if err := q.Order("iss.id DESC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *issueRepository) Create(tx *gorm.DB, issue *models.Issue) error {
	return r.conn(tx).Create(issue).Error
}

func (r *issueRepository) UpdateStatus(tx *gorm.DB, id uint, status, description string, resolvedAt *time.Time) error {
	return r.conn(tx).Model(models.Issue{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"description": description,
			"resolved_at": resolvedAt,
		}).Error
}
