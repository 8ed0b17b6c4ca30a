package linter

import (
	"errors"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/config"
)

// ConstructRule reports configuration errors the construct itself rejects.
const ConstructRule = "LEX000"

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// SlotThreshold for the SlotUsage rule.
	SlotThreshold int
	// MinSeverity drops issues below it ("info", "warning" or "error").
	MinSeverity string
}

// Lint checks cfg. The result fails when any error-level issue is found,
// including a configuration the construct would reject.
func Lint(cfg *config.Config, opts Options) logexport.LintResult {
	var issues []logexport.LintIssue

	if _, err := cfg.Build(); err != nil {
		issue := logexport.LintIssue{
			Severity: SeverityError,
			Rule:     ConstructRule,
			Message:  err.Error(),
		}
		var ce *archive.ConfigurationError
		if errors.As(err, &ce) {
			issue.Path = ce.Field
		}
		issues = append(issues, issue)
	}

	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(cfg)...)
	}

	issues = filterSeverity(issues, opts.MinSeverity)

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
			break
		}
	}
	return logexport.LintResult{Success: success, Issues: issues}
}

// LintFile loads the config at path and lints it.
func LintFile(path string, opts Options) (logexport.LintResult, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return logexport.LintResult{}, err
	}
	return Lint(cfg, opts), nil
}

var severityRank = map[string]int{
	SeverityInfo:    0,
	SeverityWarning: 1,
	SeverityError:   2,
}

func filterSeverity(issues []logexport.LintIssue, min string) []logexport.LintIssue {
	floor, ok := severityRank[min]
	if !ok || floor == 0 {
		return issues
	}
	var kept []logexport.LintIssue
	for _, issue := range issues {
		if severityRank[issue.Severity] >= floor {
			kept = append(kept, issue)
		}
	}
	return kept
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	if opts.SlotThreshold > 0 {
		for i, r := range all {
			if su, ok := r.(SlotUsage); ok {
				su.Threshold = opts.SlotThreshold
				all[i] = su
			}
		}
	}

	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}

	return filtered
}
