package services

import (
	"context"
	"fmt"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services/classify"
	"datagovapi/services/scan"
)

// CatalogService serves classification views over the cataloged columns and
// records manual overrides.
type CatalogService struct {
	columnRepo   repository.ColumnRepository
	dsRepo       repository.DataSourceRepository
	overrideRepo repository.OverrideRepository
	orchestrator *scan.Orchestrator
}

// NewCatalogService creates a catalog service.
func NewCatalogService(
	columnRepo repository.ColumnRepository,
	dsRepo repository.DataSourceRepository,
	overrideRepo repository.OverrideRepository,
	orchestrator *scan.Orchestrator,
) *CatalogService {
	return &CatalogService{
		columnRepo:   columnRepo,
		dsRepo:       dsRepo,
		overrideRepo: overrideRepo,
		orchestrator: orchestrator,
	}
}

// ListColumns returns cataloged columns with their classification state.
func (s *CatalogService) ListColumns(filter repository.ColumnFilter) ([]models.CatalogColumn, error) {
	return s.columnRepo.List(nil, filter)
}

// GetColumn returns one column by ID.
func (s *CatalogService) GetColumn(id uint) (*models.CatalogColumn, error) {
	return s.columnRepo.GetByID(nil, id)
}

// ListDataSources returns the governed data sources.
func (s *CatalogService) ListDataSources() ([]models.DataSource, error) {
	return s.dsRepo.GetAll(nil)
}

// ApplyOverride records a human classification assertion for a column and
// immediately re-evaluates it so the override takes effect before the call
// returns. The override log is append-only; corrections are new entries.
func (s *CatalogService) ApplyOverride(ctx context.Context, override *models.ManualOverride) (*classify.Verdict, error) {
	if override.Author == "" {
		return nil, fmt.Errorf("override author is required")
	}
	if override.IsSensitive && override.Category == "" {
		return nil, fmt.Errorf("sensitive overrides must name a category")
	}
	if _, err := s.columnRepo.GetByID(nil, override.ColumnID); err != nil {
		return nil, fmt.Errorf("column %d not found: %w", override.ColumnID, err)
	}

	if err := s.overrideRepo.Create(nil, override); err != nil {
		return nil, err
	}
	logger.Infof("Override recorded for column %d by %s (sensitive=%v, category=%s)",
		override.ColumnID, override.Author, override.IsSensitive, override.Category)

	return s.orchestrator.ScanColumn(ctx, override.ColumnID)
}

// ListOverrides returns the full override log, oldest first.
func (s *CatalogService) ListOverrides() ([]models.ManualOverride, error) {
	return s.overrideRepo.GetAll(nil)
}
