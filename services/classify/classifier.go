package classify

import (
	"fmt"
	"sort"

	"datagovapi/models"
	"datagovapi/pkg/logger"
)

// Name-match confidence levels. A bare hint match starts at the baseline;
// confirmation of the rule's value pattern against cached samples raises it.
const (
	NameMatchConfidence      = 60
	PatternConfirmConfidence = 75
)

// Fraction of cached samples that must match a rule's value pattern for the
// name match to count as pattern-confirmed.
const patternConfirmFraction = 0.5

// Candidate is the classifier's proposal for a column: at most one category
// with a name-match confidence. Purely advisory; only the decision fuser
// writes classification state.
type Candidate struct {
	Rule             models.RuleDefinition
	Confidence       int
	PatternConfirmed bool
	Reason           string
}

// ClassifyColumn proposes a category for a column from the enabled rules.
// Pure function over catalog state and the rule snapshot.
//
// When several rules match the same column the winner is chosen by:
// value-pattern confirmation first, then higher sensitivity tier, then lower
// rule ID as a stable tie-break. Near-equal matches are logged for operator
// review rather than treated as errors.
func ClassifyColumn(col *models.CatalogColumn, rules []models.RuleDefinition) *Candidate {
	samples := col.Samples()

	var candidates []Candidate
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		compiled, err := matchersFor(rule)
		if err != nil {
			logger.Warnf("Skipping rule %s (id=%d): %v", rule.Category, rule.ID, err)
			continue
		}
		if !compiled.nameRe.MatchString(col.Name) {
			continue
		}

		cand := Candidate{
			Rule:       *rule,
			Confidence: NameMatchConfidence,
			Reason:     fmt.Sprintf("column name %q matches hints for %s", col.Name, rule.Category),
		}
		if compiled.valueRe != nil && len(samples) > 0 {
			matched := 0
			total := 0
			for _, s := range samples {
				if s == "" {
					continue
				}
				total++
				if compiled.valueRe.MatchString(s) {
					matched++
				}
			}
			if total > 0 && float64(matched)/float64(total) >= patternConfirmFraction {
				cand.PatternConfirmed = true
				cand.Confidence = PatternConfirmConfidence
				cand.Reason = fmt.Sprintf("column name %q matches hints for %s and %d/%d samples match its value pattern",
					col.Name, rule.Category, matched, total)
			}
		}
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.PatternConfirmed != b.PatternConfirmed {
			return a.PatternConfirmed
		}
		if a.Rule.TierRank() != b.Rule.TierRank() {
			return a.Rule.TierRank() > b.Rule.TierRank()
		}
		return a.Rule.ID < b.Rule.ID
	})

	if len(candidates) > 1 {
		second := candidates[1]
		first := candidates[0]
		if first.PatternConfirmed == second.PatternConfirmed && first.Rule.TierRank() == second.Rule.TierRank() {
			logger.Infof("Ambiguous classification for column %s: rules %s and %s match with equal strength, chose %s by rule id",
				col.QualifiedName(), first.Rule.Category, second.Rule.Category, first.Rule.Category)
		}
	}

	return &candidates[0]
}
