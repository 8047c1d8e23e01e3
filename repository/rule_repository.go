package repository

import (
	"datagovapi/config"
	"datagovapi/models"

	"gorm.io/gorm"
)

// RuleRepository provides data access operations for sensitivity rule definitions.
type RuleRepository interface {
	GetAll(tx *gorm.DB) ([]models.RuleDefinition, error)
	GetEnabled(tx *gorm.DB) ([]models.RuleDefinition, error)
	GetByID(tx *gorm.DB, id uint) (*models.RuleDefinition, error)
	GetByCategory(tx *gorm.DB, category string) (*models.RuleDefinition, error)
	Create(tx *gorm.DB, rule *models.RuleDefinition) error
	Update(tx *gorm.DB, rule *models.RuleDefinition) error
	SetEnabled(tx *gorm.DB, id uint, enabled bool) error
	Count(tx *gorm.DB) (int64, error)
}

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new rule repository instance.
func NewRuleRepository() RuleRepository {
	return &ruleRepository{
		db: config.DB,
	}
}

func (r *ruleRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ruleRepository) GetAll(tx *gorm.DB) ([]models.RuleDefinition, error) {
	var rules []models.RuleDefinition
	if err := r.conn(tx).Model(models.RuleDefinition{}).Order("id").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) GetEnabled(tx *gorm.DB) ([]models.RuleDefinition, error) {
	var rules []models.RuleDefinition
	if err := r.conn(tx).Model(models.RuleDefinition{}).
		Where("enabled = ?", true).Order("id").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) GetByID(tx *gorm.DB, id uint) (*models.RuleDefinition, error) {
	var rule models.RuleDefinition
	if err := r.conn(tx).Model(models.RuleDefinition{}).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) GetByCategory(tx *gorm.DB, category string) (*models.RuleDefinition, error) {
	var rule models.RuleDefinition
	if err := r.conn(tx).Model(models.RuleDefinition{}).Where("category = ?", category).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) Create(tx *gorm.DB, rule *models.RuleDefinition) error {
	return r.conn(tx).Create(rule).Error
}

func (r *ruleRepository) Update(tx *gorm.DB, rule *models.RuleDefinition) error {
	// Save writes all fields so protection flags can be cleared back to false
	return r.conn(tx).Save(rule).Error
}

func (r *ruleRepository) SetEnabled(tx *gorm.DB, id uint, enabled bool) error {
	return r.conn(tx).Model(models.RuleDefinition{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"enabled": enabled,
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *ruleRepository) Count(tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.conn(tx).Model(models.RuleDefinition{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
