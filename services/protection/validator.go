package protection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"datagovapi/config"
	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/utils"

	_ "github.com/go-sql-driver/mysql"
)

// ErrSourceUnavailable marks a validation that could not reach the governed
// source. Callers must record the column as unknown, never as protected.
var ErrSourceUnavailable = errors.New("source system unavailable")

// Result is the outcome of one protection validation.
type Result struct {
	Status      string `json:"status"` // protected/unprotected/unknown
	IsProtected bool   `json:"is_protected"`
	Method      string `json:"method,omitempty"` // dominant protection method observed
	Confidence  int    `json:"confidence"`
	SampleSize  int    `json:"sample_size"`
	Details     string `json:"details"`
}

// Validator checks whether a sensitive column's values are stored protected
// at the live source. Implementations sample fresh rows rather than trusting
// cached catalog samples, which may predate a protection rollout.
type Validator interface {
	Validate(ctx context.Context, ds *models.DataSource, asset *models.CatalogAsset, col *models.CatalogColumn) (*Result, error)
}

type liveValidator struct {
	sampleSize        int
	entropyThreshold  float64
	protectedFraction float64
}

// NewValidator creates a protection validator using the global configuration.
func NewValidator() Validator {
	return &liveValidator{
		sampleSize:        config.Cfg.LiveSampleSize,
		entropyThreshold:  config.Cfg.EntropyThreshold,
		protectedFraction: config.Cfg.ProtectedFraction,
	}
}

// quoteIdent backtick-quotes a MySQL identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// sourceDSN composes the live connection string. Server parameters come from
// the data source record and the database name from the catalog asset.
func sourceDSN(ds *models.DataSource, asset *models.CatalogAsset) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&readTimeout=%s",
		ds.Username, ds.Password, ds.Host, ds.Port, asset.DatabaseName,
		config.Cfg.SourceConnectTimeout, config.Cfg.SourceQueryTimeout)
}

func (v *liveValidator) Validate(ctx context.Context, ds *models.DataSource, asset *models.CatalogAsset, col *models.CatalogColumn) (*Result, error) {
	if !utils.IsValidHost(ds.Host) {
		return unavailableResult(col, fmt.Errorf("malformed host %q on data source %s", ds.Host, ds.Name)), ErrSourceUnavailable
	}

	db, err := sql.Open("mysql", sourceDSN(ds, asset))
	if err != nil {
		return unavailableResult(col, err), ErrSourceUnavailable
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	connectCtx, cancel := context.WithTimeout(ctx, config.Cfg.SourceConnectTimeout)
	defer cancel()
	if err := db.PingContext(connectCtx); err != nil {
		return unavailableResult(col, err), ErrSourceUnavailable
	}

	samples, err := v.sampleColumn(ctx, db, col)
	if err != nil {
		return unavailableResult(col, err), ErrSourceUnavailable
	}
	return v.judge(col, samples), nil
}

// sampleColumn pulls up to sampleSize fresh non-null values from the source.
func (v *liveValidator) sampleColumn(ctx context.Context, db *sql.DB, col *models.CatalogColumn) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, config.Cfg.SourceQueryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		quoteIdent(col.Name), quoteIdent(col.Table), quoteIdent(col.Name), v.sampleSize)
	rows, err := db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		if value.Valid {
			samples = append(samples, value.String)
		}
	}
	return samples, rows.Err()
}

// judge applies the protection heuristics to the sampled values. An empty
// sample set is inconclusive: the column may be empty or freshly truncated,
// and absence of data is not evidence of protection.
func (v *liveValidator) judge(col *models.CatalogColumn, samples []string) *Result {
	if len(samples) == 0 {
		return &Result{
			Status:     models.ProtectionUnknown,
			SampleSize: 0,
			Details:    fmt.Sprintf("no rows sampled from %s", col.QualifiedName()),
		}
	}

	methodCounts := make(map[string]int)
	protected := 0
	for _, s := range samples {
		method := classifyValue(s, v.entropyThreshold)
		if method != MethodNone {
			protected++
			methodCounts[method]++
		}
	}

	frac := float64(protected) / float64(len(samples))
	if frac >= v.protectedFraction {
		dominant := dominantMethod(methodCounts)
		logger.Debugf("Column %s judged protected via %s (%d/%d samples)", col.QualifiedName(), dominant, protected, len(samples))
		return &Result{
			Status:      models.ProtectionProtected,
			IsProtected: true,
			Method:      dominant,
			Confidence:  int(frac * 100),
			SampleSize:  len(samples),
			Details:     fmt.Sprintf("%d of %d sampled values look %s", protected, len(samples), dominant),
		}
	}

	return &Result{
		Status:     models.ProtectionUnprotected,
		Confidence: int((1 - frac) * 100),
		SampleSize: len(samples),
		Details:    fmt.Sprintf("%d of %d sampled values appear to be cleartext", len(samples)-protected, len(samples)),
	}
}

func dominantMethod(counts map[string]int) string {
	best := MethodNone
	bestCount := 0
	for method, n := range counts {
		if n > bestCount || (n == bestCount && method < best) {
			best = method
			bestCount = n
		}
	}
	return best
}

func unavailableResult(col *models.CatalogColumn, err error) *Result {
	logger.Warnf("Protection validation for %s failed, source unreachable: %v", col.QualifiedName(), err)
	return &Result{
		Status:     models.ProtectionUnknown,
		Details:    fmt.Sprintf("source unavailable: %v", err),
		SampleSize: 0,
	}
}
