package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"datagovapi/config"
	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services/classify"
	"datagovapi/services/issue"
	"datagovapi/services/protection"
)

// Summary aggregates the outcome of one rescan.
type Summary struct {
	ColumnsScanned    int           `json:"columns_scanned"`
	FlaggedSensitive  int           `json:"flagged_sensitive"`
	ProtectionChecked int           `json:"protection_checked"`
	Unprotected       int           `json:"unprotected"`
	SourceErrors      int           `json:"source_errors"`
	IssuesOpened      int           `json:"issues_opened"`
	IssuesReopened    int           `json:"issues_reopened"`
	IssuesResolved    int           `json:"issues_resolved"`
	Duration          time.Duration `json:"duration_ns"`
}

// Orchestrator drives rescans: it snapshots the rule set, fans columns out to
// a bounded worker pool, and funnels every verdict through the classifier,
// the protection validator and the issue synchronizer.
type Orchestrator struct {
	ruleRepo     repository.RuleRepository
	columnRepo   repository.ColumnRepository
	dsRepo       repository.DataSourceRepository
	assetRepo    repository.AssetRepository
	overrideRepo repository.OverrideRepository
	validator    protection.Validator
	syncer       *issue.SyncService
}

// NewOrchestrator creates a rescan orchestrator.
func NewOrchestrator(
	ruleRepo repository.RuleRepository,
	columnRepo repository.ColumnRepository,
	dsRepo repository.DataSourceRepository,
	assetRepo repository.AssetRepository,
	overrideRepo repository.OverrideRepository,
	validator protection.Validator,
	syncer *issue.SyncService,
) *Orchestrator {
	return &Orchestrator{
		ruleRepo:     ruleRepo,
		columnRepo:   columnRepo,
		dsRepo:       dsRepo,
		assetRepo:    assetRepo,
		overrideRepo: overrideRepo,
		validator:    validator,
		syncer:       syncer,
	}
}

// scanContext holds the prefetched catalog state one rescan works against.
// Rules are snapshotted once at scan start; edits made while a scan runs take
// effect on the next scan.
type scanContext struct {
	rules      []models.RuleDefinition
	rulesByCat map[string]*models.RuleDefinition
	sources    map[uint]*models.DataSource
	assets     map[uint]*models.CatalogAsset
	overrides  map[uint]*models.ManualOverride
	history    []classify.OverrideExample
}

// RescanAll re-evaluates every cataloged column against the current rule set.
func (o *Orchestrator) RescanAll(ctx context.Context, jobID string) (*Summary, error) {
	columns, err := o.columnRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	return o.scanColumns(ctx, jobID, columns)
}

// RescanRule re-evaluates the whole catalog after one rule changed. The full
// catalog is scanned rather than just prior matches of that rule because a
// rule edit can shift tie-break winners on columns the rule never matched.
func (o *Orchestrator) RescanRule(ctx context.Context, jobID string, ruleID uint) (*Summary, error) {
	if _, err := o.ruleRepo.GetByID(nil, ruleID); err != nil {
		return nil, fmt.Errorf("rule %d not found: %w", ruleID, err)
	}
	columns, err := o.columnRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	return o.scanColumns(ctx, jobID, columns)
}

// ScanColumn re-evaluates a single column synchronously. Used after a manual
// override so the caller sees the resulting classification immediately.
func (o *Orchestrator) ScanColumn(ctx context.Context, columnID uint) (*classify.Verdict, error) {
	col, err := o.columnRepo.GetByID(nil, columnID)
	if err != nil {
		return nil, err
	}
	sc, err := o.loadScanContext()
	if err != nil {
		return nil, err
	}
	var summary Summary
	verdict := o.scanOne(ctx, sc, col, &summary)
	return verdict, nil
}

func (o *Orchestrator) loadScanContext() (*scanContext, error) {
	rules, err := o.ruleRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	sources, err := o.dsRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	assets, err := o.assetRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	overrides, err := o.overrideRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}
	allColumns, err := o.columnRepo.GetAll(nil)
	if err != nil {
		return nil, err
	}

	sc := &scanContext{
		rules:      rules,
		rulesByCat: make(map[string]*models.RuleDefinition, len(rules)),
		sources:    make(map[uint]*models.DataSource, len(sources)),
		assets:     make(map[uint]*models.CatalogAsset, len(assets)),
		overrides:  make(map[uint]*models.ManualOverride, len(overrides)),
	}
	for i := range rules {
		sc.rulesByCat[rules[i].Category] = &rules[i]
	}
	for i := range sources {
		sc.sources[sources[i].ID] = &sources[i]
	}
	for i := range assets {
		sc.assets[assets[i].ID] = &assets[i]
	}

	columnsByID := make(map[uint]*models.CatalogColumn, len(allColumns))
	for i := range allColumns {
		columnsByID[allColumns[i].ID] = &allColumns[i]
	}

	// Overrides arrive oldest first, so the map ends up holding the newest
	// entry per column. Every entry also feeds the learned-prediction history.
	for i := range overrides {
		ov := &overrides[i]
		sc.overrides[ov.ColumnID] = ov
		if col, ok := columnsByID[ov.ColumnID]; ok {
			sc.history = append(sc.history, classify.OverrideExample{
				ColumnName:  col.Name,
				TableName:   col.Table,
				IsSensitive: ov.IsSensitive,
				Category:    ov.Category,
			})
		}
	}
	return sc, nil
}

// scanColumns fans columns out to a bounded worker pool. Worker failures on
// one column never abort the scan; they are counted and logged.
func (o *Orchestrator) scanColumns(ctx context.Context, jobID string, columns []models.CatalogColumn) (*Summary, error) {
	start := time.Now()

	sc, err := o.loadScanContext()
	if err != nil {
		return nil, err
	}

	concurrency := config.GetScanConcurrency()
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	summary := &Summary{}
	done := 0
	total := len(columns)

	logger.Infof("Starting rescan of %d columns with %d workers", total, concurrency)

	for i := range columns {
		col := &columns[i]
		if config.IsSystemSchema(col.SchemaName) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic scanning column %s: %v", col.QualifiedName(), r)
					mu.Lock()
					summary.SourceErrors++
					mu.Unlock()
				}
			}()

			var local Summary
			o.scanOne(ctx, sc, col, &local)

			mu.Lock()
			summary.ColumnsScanned += local.ColumnsScanned
			summary.FlaggedSensitive += local.FlaggedSensitive
			summary.ProtectionChecked += local.ProtectionChecked
			summary.Unprotected += local.Unprotected
			summary.SourceErrors += local.SourceErrors
			summary.IssuesOpened += local.IssuesOpened
			summary.IssuesReopened += local.IssuesReopened
			summary.IssuesResolved += local.IssuesResolved
			done++
			progress := done
			mu.Unlock()

			if jobID != "" {
				GetJobMonitorService().UpdateProgress(jobID, progress, total)
			}
		}()
	}

	wg.Wait()
	summary.Duration = time.Since(start)
	logger.Infof("Rescan finished in %v: %d columns, %d sensitive, %d unprotected, %d opened, %d resolved, %d source errors",
		summary.Duration, summary.ColumnsScanned, summary.FlaggedSensitive,
		summary.Unprotected, summary.IssuesOpened, summary.IssuesResolved, summary.SourceErrors)
	return summary, nil
}

// scanOne runs the full pipeline for one column: classify, fuse, persist the
// verdict, validate protection at the live source and synchronize issues.
func (o *Orchestrator) scanOne(ctx context.Context, sc *scanContext, col *models.CatalogColumn, summary *Summary) *classify.Verdict {
	summary.ColumnsScanned++

	samples := col.Samples()
	if max := config.Cfg.SampleSize; max > 0 && len(samples) > max {
		samples = samples[:max]
	}

	candidate := classify.ClassifyColumn(col, sc.rules)
	verdict := classify.Fuse(classify.FuseInput{
		Column:    col,
		Samples:   samples,
		Override:  sc.overrides[col.ID],
		History:   sc.history,
		Candidate: candidate,
		Rules:     sc.rules,
		Threshold: config.Cfg.ContentMatchThreshold,
	})

	if err := o.persistVerdict(col, &verdict, summary); err != nil {
		logger.Errorf("Failed to persist verdict for column %s: %v", col.QualifiedName(), err)
		return &verdict
	}

	if !verdict.IsSensitive || verdict.Category == "" {
		return &verdict
	}
	summary.FlaggedSensitive++

	rule, ok := sc.rulesByCat[verdict.Category]
	if !ok || !rule.Enabled {
		return &verdict
	}

	if rule.MonitoringMode() {
		// No protection mandate, just keep the ledger clean.
		res, err := o.syncer.Apply(col, rule, models.ProtectionUnknown)
		if err != nil {
			logger.Errorf("Issue sync failed for column %s: %v", col.QualifiedName(), err)
			return &verdict
		}
		summary.IssuesResolved += res.Resolved
		return &verdict
	}

	o.validateProtection(ctx, sc, col, rule, summary)
	return &verdict
}

// persistVerdict writes the fused classification to the catalog and resolves
// stale issues when the category moved away from a previous assignment.
func (o *Orchestrator) persistVerdict(col *models.CatalogColumn, verdict *classify.Verdict, summary *Summary) error {
	if col.Category == verdict.Category && col.IsSensitive == verdict.IsSensitive {
		return nil
	}

	if col.Category != "" && col.Category != verdict.Category {
		resolved, err := o.syncer.ResolveAsStale(col.ID,
			fmt.Sprintf("column %s reclassified from %s", col.QualifiedName(), col.Category))
		if err != nil {
			return err
		}
		summary.IssuesResolved += resolved
	}

	if err := o.columnRepo.UpdateClassification(nil, col.ID, verdict.Category, verdict.IsSensitive); err != nil {
		return err
	}
	col.Category = verdict.Category
	col.IsSensitive = verdict.IsSensitive
	logger.Debugf("Column %s classified %q (stage=%s, confidence=%d)",
		col.QualifiedName(), verdict.Category, verdict.Stage, verdict.Confidence)
	return nil
}

// validateProtection samples the live source and reconciles the result with
// the issue ledger. An unreachable source records unknown and leaves the
// ledger untouched.
func (o *Orchestrator) validateProtection(ctx context.Context, sc *scanContext, col *models.CatalogColumn, rule *models.RuleDefinition, summary *Summary) {
	ds, dsOK := sc.sources[col.DataSourceID]
	asset, assetOK := sc.assets[col.AssetID]
	if !dsOK || !assetOK {
		logger.Warnf("Column %s has no resolvable data source or asset, skipping protection check", col.QualifiedName())
		summary.SourceErrors++
		return
	}

	summary.ProtectionChecked++
	result, err := o.validator.Validate(ctx, ds, asset, col)
	if err != nil {
		summary.SourceErrors++
	}

	if uerr := o.columnRepo.UpdateProtectionStatus(nil, col.ID, result.Status); uerr != nil {
		logger.Errorf("Failed to update protection status for column %s: %v", col.QualifiedName(), uerr)
		return
	}
	col.ProtectionStatus = result.Status

	if result.Status == models.ProtectionUnprotected {
		summary.Unprotected++
	}

	res, serr := o.syncer.Apply(col, rule, result.Status)
	if serr != nil {
		logger.Errorf("Issue sync failed for column %s: %v", col.QualifiedName(), serr)
		return
	}
	summary.IssuesOpened += res.Opened
	summary.IssuesReopened += res.Reopened
	summary.IssuesResolved += res.Resolved
}
