package classify

import (
	"fmt"
	"regexp"
	"strings"

	"datagovapi/models"
)

// Decision stages in precedence order. Each classification verdict records
// the stage that produced it so operators can audit why a column was flagged.
const (
	StageManualOverride    = "manual_override"
	StageContentMatch      = "content_match"
	StageMetadataContext   = "metadata_context"
	StageLearnedPrediction = "learned_prediction"
	StageNameHintOnly      = "name_hint_only"
	StageNoMatch           = "no_match"
)

// Confidence bounds for the learned-prediction stage.
const (
	learnedMinAgreement = 3
	learnedBaseConf     = 70
	learnedConfPerVote  = 5
	learnedMaxConf      = 95
	overrideConf        = 100
	metadataConf        = 85
)

var (
	metadataTableRe  = regexp.MustCompile(`(?i)(audit|_log$|^log_|logs?$|meta|schema|migration|lineage|catalog|history|version)`)
	metadataColumnRe = regexp.MustCompile(`(?i)^(table_name|schema_name|column_name|database_name|object_name|created_by|updated_by|modified_by|operation_type|event_type|entity_type|source_table|target_table)$`)
)

// Verdict is the fused classification decision for one column.
type Verdict struct {
	IsSensitive bool   `json:"is_sensitive"`
	Category    string `json:"category,omitempty"`
	Confidence  int    `json:"confidence"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason"`
}

// OverrideExample is a historical override projected to the features the
// learned-prediction stage compares on.
type OverrideExample struct {
	ColumnName  string
	TableName   string
	IsSensitive bool
	Category    string
}

// FuseInput carries everything one fuse decision needs. Override is the
// newest override for this column or nil; History is the override log across
// the whole catalog for learned predictions.
type FuseInput struct {
	Column    *models.CatalogColumn
	Samples   []string
	Override  *models.ManualOverride
	History   []OverrideExample
	Candidate *Candidate
	Rules     []models.RuleDefinition
	Threshold float64
}

// Fuse combines all classification signals into one verdict. Stages are
// strictly ordered: a manual override is terminal and wins over everything,
// content evidence beats metadata context, which beats learned predictions,
// which beat bare name-hint matches.
func Fuse(in FuseInput) Verdict {
	if in.Override != nil {
		return Verdict{
			IsSensitive: in.Override.IsSensitive,
			Category:    in.Override.Category,
			Confidence:  overrideConf,
			Stage:       StageManualOverride,
			Reason:      fmt.Sprintf("manual override by %s: %s", in.Override.Author, in.Override.Reason),
		}
	}

	if score := BestConfirmed(in.Samples, in.Threshold); score != nil {
		if cat := in.ruleCategoryFor(score.Category); cat != "" {
			return Verdict{
				IsSensitive: true,
				Category:    cat,
				Confidence:  score.Confidence,
				Stage:       StageContentMatch,
				Reason:      score.Reason,
			}
		}
	}

	if isMetadataContext(in.Column) {
		return Verdict{
			IsSensitive: false,
			Confidence:  metadataConf,
			Stage:       StageMetadataContext,
			Reason:      fmt.Sprintf("column %s sits in a metadata context, name hints are not trusted here", in.Column.QualifiedName()),
		}
	}

	if v, ok := learnedPrediction(in); ok {
		return v
	}

	if in.Candidate != nil {
		// Content contradiction: a name like pipeline_id matches the ip hint,
		// but when sampled values fail the category's own value test the name
		// match is rejected rather than trusted.
		if len(in.Samples) > 0 && !in.Candidate.PatternConfirmed {
			if frac, ok := CategoryFraction(in.Samples, in.Candidate.Rule.Category); ok && frac < in.Threshold {
				return Verdict{
					IsSensitive: false,
					Stage:       StageNoMatch,
					Reason: fmt.Sprintf("name hints matched %s but only %.0f%% of sampled values fit that category",
						in.Candidate.Rule.Category, frac*100),
				}
			}
		}
		return Verdict{
			IsSensitive: true,
			Category:    in.Candidate.Rule.Category,
			Confidence:  in.Candidate.Confidence,
			Stage:       StageNameHintOnly,
			Reason:      in.Candidate.Reason,
		}
	}

	return Verdict{
		IsSensitive: false,
		Stage:       StageNoMatch,
		Reason:      "no rule hints, content evidence or override history matched",
	}
}

// ruleCategoryFor checks that a content-detected category corresponds to an
// enabled rule. Content analysis alone never flags categories no rule tracks.
func (in FuseInput) ruleCategoryFor(category string) string {
	for i := range in.Rules {
		if in.Rules[i].Enabled && in.Rules[i].Category == category {
			return category
		}
	}
	return ""
}

// isMetadataContext reports whether the column lives in structural metadata.
// Both signals must agree: the table is an audit/log/catalog table and the
// column name is a generic metadata field. Either one alone is too weak, a
// payment_history table still holds real emails.
func isMetadataContext(col *models.CatalogColumn) bool {
	return metadataTableRe.MatchString(col.Table) && metadataColumnRe.MatchString(col.Name)
}

// learnedPrediction votes from historical overrides on columns similar to
// this one. Similar means an equal normalized column name in the same kind of
// table context. At least three agreeing examples are required and a single
// dissent vetoes the prediction.
func learnedPrediction(in FuseInput) (Verdict, bool) {
	name := normalizeColumnName(in.Column.Name)
	if name == "" || len(in.History) == 0 {
		return Verdict{}, false
	}

	colMeta := metadataTableRe.MatchString(in.Column.Table)
	agree := 0
	var verdictSensitive bool
	var verdictCategory string
	seenFirst := false
	for _, ex := range in.History {
		if normalizeColumnName(ex.ColumnName) != name {
			continue
		}
		if metadataTableRe.MatchString(ex.TableName) != colMeta {
			continue
		}
		if !seenFirst {
			verdictSensitive = ex.IsSensitive
			verdictCategory = ex.Category
			seenFirst = true
			agree = 1
			continue
		}
		if ex.IsSensitive != verdictSensitive || ex.Category != verdictCategory {
			return Verdict{}, false
		}
		agree++
	}

	if agree < learnedMinAgreement {
		return Verdict{}, false
	}

	conf := learnedBaseConf + (agree-learnedMinAgreement)*learnedConfPerVote
	if conf > learnedMaxConf {
		conf = learnedMaxConf
	}
	return Verdict{
		IsSensitive: verdictSensitive,
		Category:    verdictCategory,
		Confidence:  conf,
		Stage:       StageLearnedPrediction,
		Reason:      fmt.Sprintf("%d prior overrides on similar columns named %q agree", agree, in.Column.Name),
	}, true
}

// normalizeColumnName folds case and separator noise so customer_email,
// CustomerEmail and customer-email compare equal.
func normalizeColumnName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '_' || r == '-' || r == ' ' || r == '.':
			// separator noise
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
