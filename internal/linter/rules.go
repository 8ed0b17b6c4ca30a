// Package linter checks a logexport config for mistakes the construct
// accepts but that are unlikely to be intended.
//
// Rules:
//
//	LEX001: Two jobs export the same log group
//	LEX002: Destination prefix should end with "/"
//	LEX003: Destination prefix nests inside another job's prefix
//	LEX004: Schedule slot usage of the export hour
//	LEX005: retentionDays has no effect on an external bucket
//	LEX006: Timezone is not a known IANA zone
//	LEX007: Job has no description
package linter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/config"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Rule is the interface for lint rules.
type Rule interface {
	ID() string
	Description() string
	Check(cfg *config.Config) []logexport.LintIssue
}

func jobPath(i int, field string) string {
	p := fmt.Sprintf("schedules[%d]", i)
	if field != "" {
		p += "." + field
	}
	return p
}

// DuplicateLogGroup detects two jobs exporting the same log group, which
// writes the same data twice a day.
type DuplicateLogGroup struct{}

func (r DuplicateLogGroup) ID() string { return "LEX001" }
func (r DuplicateLogGroup) Description() string {
	return "Two jobs export the same log group"
}

func (r DuplicateLogGroup) Check(cfg *config.Config) []logexport.LintIssue {
	var issues []logexport.LintIssue
	first := make(map[string]int)
	for i, s := range cfg.Schedules {
		group := s.Target.LogGroupName
		if group == "" {
			continue
		}
		if j, ok := first[group]; ok {
			issues = append(issues, logexport.LintIssue{
				Severity: SeverityWarning,
				Rule:     r.ID(),
				Message:  fmt.Sprintf("log group %s is also exported by %q", group, cfg.Schedules[j].Name),
				Path:     jobPath(i, "target.logGroupName"),
			})
			continue
		}
		first[group] = i
	}
	return issues
}

// PrefixTrailingSlash detects destination prefixes that do not end in "/",
// which makes the export objects siblings of the prefix instead of children.
type PrefixTrailingSlash struct{}

func (r PrefixTrailingSlash) ID() string { return "LEX002" }
func (r PrefixTrailingSlash) Description() string {
	return `Destination prefix should end with "/"`
}

func (r PrefixTrailingSlash) Check(cfg *config.Config) []logexport.LintIssue {
	var issues []logexport.LintIssue
	for i, s := range cfg.Schedules {
		prefix := s.Target.DestinationPrefix
		if prefix == "" || strings.HasSuffix(prefix, "/") {
			continue
		}
		issues = append(issues, logexport.LintIssue{
			Severity: SeverityWarning,
			Rule:     r.ID(),
			Message:  fmt.Sprintf("destination prefix %q should end with '/'", prefix),
			Path:     jobPath(i, "target.destinationPrefix"),
		})
	}
	return issues
}

// OverlappingPrefix detects a job whose prefix lies inside another job's
// prefix, so a lifecycle or listing on the outer prefix also covers it.
type OverlappingPrefix struct{}

func (r OverlappingPrefix) ID() string { return "LEX003" }
func (r OverlappingPrefix) Description() string {
	return "Destination prefix nests inside another job's prefix"
}

func (r OverlappingPrefix) Check(cfg *config.Config) []logexport.LintIssue {
	var issues []logexport.LintIssue
	for i, inner := range cfg.Schedules {
		p := inner.Target.DestinationPrefix
		for j, outer := range cfg.Schedules {
			q := outer.Target.DestinationPrefix
			if i == j || q == "" || p == q || !strings.HasPrefix(p, q) {
				continue
			}
			issues = append(issues, logexport.LintIssue{
				Severity: SeverityWarning,
				Rule:     r.ID(),
				Message:  fmt.Sprintf("prefix %q is inside %q of %q", p, q, outer.Name),
				Path:     jobPath(i, "target.destinationPrefix"),
			})
			break
		}
	}
	return issues
}

// SlotUsage reports how many of the export hour's minutes are taken.
// It only speaks up when the hour is nearly or over full.
type SlotUsage struct {
	// Threshold is the job count from which usage is reported.
	Threshold int
}

// DefaultSlotThreshold is the job count from which SlotUsage reports.
const DefaultSlotThreshold = 50

func (r SlotUsage) ID() string { return "LEX004" }
func (r SlotUsage) Description() string {
	return "Schedule slot usage of the export hour"
}

func (r SlotUsage) Check(cfg *config.Config) []logexport.LintIssue {
	n := len(cfg.Schedules)
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultSlotThreshold
	}
	switch {
	case n > archive.MaxJobs:
		return []logexport.LintIssue{{
			Severity: SeverityError,
			Rule:     r.ID(),
			Message:  fmt.Sprintf("%d jobs do not fit the %d slots of one hour", n, archive.MaxJobs),
			Path:     "schedules",
		}}
	case n >= threshold:
		return []logexport.LintIssue{{
			Severity: SeverityInfo,
			Rule:     r.ID(),
			Message:  fmt.Sprintf("%d of %d slots used", n, archive.MaxJobs),
			Path:     "schedules",
		}}
	}
	return nil
}

// RetentionWithExternalBucket detects retentionDays set alongside an
// external bucket. Only the managed bucket gets a lifecycle rule.
type RetentionWithExternalBucket struct{}

func (r RetentionWithExternalBucket) ID() string { return "LEX005" }
func (r RetentionWithExternalBucket) Description() string {
	return "retentionDays has no effect on an external bucket"
}

func (r RetentionWithExternalBucket) Check(cfg *config.Config) []logexport.LintIssue {
	if cfg.TargetBucket == "" || cfg.RetentionDays == 0 {
		return nil
	}
	return []logexport.LintIssue{{
		Severity: SeverityWarning,
		Rule:     r.ID(),
		Message:  fmt.Sprintf("retentionDays %d is ignored because targetBucket %s is external", cfg.RetentionDays, cfg.TargetBucket),
		Path:     "retentionDays",
	}}
}

// UnknownTimezone detects a timezone the tz database does not know, or
// Local. The construct rejects both; the rule points at the field.
type UnknownTimezone struct{}

func (r UnknownTimezone) ID() string { return "LEX006" }
func (r UnknownTimezone) Description() string {
	return "Timezone is not a known IANA zone"
}

func (r UnknownTimezone) Check(cfg *config.Config) []logexport.LintIssue {
	err := archive.ValidateTimezone(cfg.Timezone)
	if err == nil {
		return nil
	}
	var ce *archive.ConfigurationError
	msg := err.Error()
	if errors.As(err, &ce) {
		msg = ce.Reason
	}
	return []logexport.LintIssue{{
		Severity: SeverityError,
		Rule:     r.ID(),
		Message:  msg,
		Path:     "timezone",
	}}
}

// MissingDescription notes jobs without a description. The description is
// the only human-readable text on a schedule in the console.
type MissingDescription struct{}

func (r MissingDescription) ID() string { return "LEX007" }
func (r MissingDescription) Description() string {
	return "Job has no description"
}

func (r MissingDescription) Check(cfg *config.Config) []logexport.LintIssue {
	var issues []logexport.LintIssue
	for i, s := range cfg.Schedules {
		if strings.TrimSpace(s.Description) != "" {
			continue
		}
		issues = append(issues, logexport.LintIssue{
			Severity: SeverityInfo,
			Rule:     r.ID(),
			Message:  fmt.Sprintf("job %q has no description", s.Name),
			Path:     jobPath(i, "description"),
		})
	}
	return issues
}

// AllRules returns every rule, ordered by ID.
func AllRules() []Rule {
	rules := []Rule{
		DuplicateLogGroup{},
		PrefixTrailingSlash{},
		OverlappingPrefix{},
		SlotUsage{},
		RetentionWithExternalBucket{},
		UnknownTimezone{},
		MissingDescription{},
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID() < rules[j].ID() })
	return rules
}
