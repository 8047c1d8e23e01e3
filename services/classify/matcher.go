package classify

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"datagovapi/models"
)

// compiledRule holds the precompiled matchers for one rule version.
// Hints are plain tokens supplied by administrators; the fuzzy pattern is
// always built here so a hint like "ip" matches actor_ip, start_ip_address
// and client_ip_v4 anywhere in the column name.
type compiledRule struct {
	version int
	nameRe  *regexp.Regexp
	valueRe *regexp.Regexp // nil when the rule has no value pattern
}

var (
	matcherMu    sync.RWMutex
	matcherCache = make(map[uint]*compiledRule)
)

// CompileHints builds the case-insensitive fuzzy substring matcher from hint tokens.
func CompileHints(hints []string) (*regexp.Regexp, error) {
	if len(hints) == 0 {
		return nil, fmt.Errorf("rule has no hint tokens")
	}
	quoted := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(h)))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("rule has no usable hint tokens")
	}
	return regexp.Compile("(?i)(" + strings.Join(quoted, "|") + ")")
}

// CompileValuePattern validates and compiles an admin-supplied value pattern.
// Called at rule-save time so malformed patterns never reach the scanner.
func CompileValuePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid value pattern %q: %w", pattern, err)
	}
	return re, nil
}

// matchersFor returns the compiled matchers for a rule, compiling and caching
// on first use. The cache key is the rule ID; a version mismatch forces a
// recompile so rule edits take effect without restart.
func matchersFor(rule *models.RuleDefinition) (*compiledRule, error) {
	matcherMu.RLock()
	cached, ok := matcherCache[rule.ID]
	matcherMu.RUnlock()
	if ok && cached.version == rule.Version {
		return cached, nil
	}

	nameRe, err := CompileHints(rule.HintList())
	if err != nil {
		return nil, err
	}
	valueRe, err := CompileValuePattern(rule.ValuePattern)
	if err != nil {
		return nil, err
	}

	compiled := &compiledRule{version: rule.Version, nameRe: nameRe, valueRe: valueRe}
	matcherMu.Lock()
	matcherCache[rule.ID] = compiled
	matcherMu.Unlock()
	return compiled, nil
}

// InvalidateMatcher drops the cached matcher for a rule. Called on rule edits.
func InvalidateMatcher(ruleID uint) {
	matcherMu.Lock()
	delete(matcherCache, ruleID)
	matcherMu.Unlock()
}
