// Package validation checks synthesized templates before they are deployed.
//
// Three passes run over a template:
//   - structural checks: references resolve, no cycles, schedule slots
//   - offline schema: required properties and value ranges of each resource
//   - cfn-lint-go: CloudFormation schema and best-practice rules (library dependency)
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/differ"
	"github.com/lex00/logexport-aws-go/internal/schema"
	"github.com/lex00/logexport-aws-go/internal/template"
)

// ScheduleType is the CloudFormation type of an export schedule.
const ScheduleType = "AWS::Scheduler::Schedule"

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Options configures Validate.
type Options struct {
	// SkipCfnLint runs the structural and schema checks only.
	SkipCfnLint bool
}

// Validate runs the structural, schema and cfn-lint checks over t. Errors
// fail the result; warnings are reported but do not.
func Validate(t *logexport.Template, opts Options) (*logexport.ValidateResult, error) {
	result := &logexport.ValidateResult{Resources: len(t.Resources)}

	result.Errors = append(result.Errors, CheckStructure(t)...)
	result.Errors = append(result.Errors, CheckSchedules(t)...)

	schemaResult := schema.ValidateTemplate(t, schema.Options{})
	for _, e := range schemaResult.Errors {
		result.Errors = append(result.Errors, e.String())
	}
	for _, w := range schemaResult.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	if !opts.SkipCfnLint {
		lintResult, err := LintTemplate(t)
		if err != nil {
			return nil, err
		}
		result.Errors = append(result.Errors, lintResult.Errors...)
		result.Warnings = append(result.Warnings, lintResult.Warnings...)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// ValidateFile loads a JSON or YAML template and validates it.
func ValidateFile(path string, opts Options) (*logexport.ValidateResult, error) {
	t, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return Validate(t, opts)
}

// CheckStructure reports missing resources, unknown references and
// dependency cycles.
func CheckStructure(t *logexport.Template) []string {
	var errs []string

	if t.AWSTemplateFormatVersion != template.FormatVersion {
		errs = append(errs, fmt.Sprintf("AWSTemplateFormatVersion is %q, want %q", t.AWSTemplateFormatVersion, template.FormatVersion))
	}
	if len(t.Resources) == 0 {
		return append(errs, "template has no resources")
	}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := t.Resources[name]
		if !strings.HasPrefix(def.Type, "AWS::") {
			errs = append(errs, fmt.Sprintf("%s: unsupported resource type %q", name, def.Type))
		}
		for _, dep := range template.Dependencies(def) {
			if _, ok := t.Resources[dep]; !ok {
				errs = append(errs, fmt.Sprintf("%s references unknown resource %s", name, dep))
			}
		}
	}

	if _, err := template.Order(t); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

var cronPattern = regexp.MustCompile(`^cron\((\d{1,2}) (\d{1,2}) \* \* \? \*\)$`)

// CheckSchedules verifies the schedules of each group share one hour, hold
// distinct minutes and fit within the per-hour slot limit.
func CheckSchedules(t *logexport.Template) []string {
	type slot struct {
		name   string
		minute int
	}
	groups := make(map[string][]slot)
	hours := make(map[string]map[int]bool)
	var errs []string

	names := make([]string, 0, len(t.Resources))
	for name, def := range t.Resources {
		if def.Type == ScheduleType {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		props := t.Resources[name].Properties
		expr, _ := props["ScheduleExpression"].(string)
		m := cronPattern.FindStringSubmatch(expr)
		if m == nil {
			errs = append(errs, fmt.Sprintf("%s: schedule expression %q is not a daily cron", name, expr))
			continue
		}
		minute, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[2])
		if minute > 59 || hour > 23 {
			errs = append(errs, fmt.Sprintf("%s: schedule expression %q out of range", name, expr))
			continue
		}

		group := groupKey(props["GroupName"])
		groups[group] = append(groups[group], slot{name: name, minute: minute})
		if hours[group] == nil {
			hours[group] = make(map[int]bool)
		}
		hours[group][hour] = true
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, group := range keys {
		slots := groups[group]
		if len(slots) > archive.MaxJobs {
			errs = append(errs, fmt.Sprintf("group %s: %d schedules exceed %d slots", group, len(slots), archive.MaxJobs))
		}
		if len(hours[group]) > 1 {
			errs = append(errs, fmt.Sprintf("group %s: schedules span %d hours", group, len(hours[group])))
		}
		taken := make(map[int]string)
		for _, s := range slots {
			if other, ok := taken[s.minute]; ok {
				errs = append(errs, fmt.Sprintf("%s and %s share minute %d", other, s.name, s.minute))
				continue
			}
			taken[s.minute] = s.name
		}
	}
	return errs
}

// groupKey renders a GroupName value (literal or intrinsic) as a map key.
func groupKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "default"
	case string:
		return val
	default:
		refs := template.References(val)
		if len(refs) == 1 {
			return refs[0].Target
		}
		return fmt.Sprintf("%v", val)
	}
}

// LintTemplate writes t to a temporary file and runs cfn-lint on it.
func LintTemplate(t *logexport.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	dir, err := os.MkdirTemp("", "logexport-validate-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	result.Passed = len(result.Errors) == 0
	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
