// Package differ compares two CloudFormation templates resource by resource.
//
// It is used by `logexport diff` to show what a config change does to a
// deployed template, for example which schedules a reorder touches.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	logexport "github.com/lex00/logexport-aws-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder treats arrays as unordered sets.
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    logexport.TemplateDiff
	Summary logexport.DiffSummary
}

// Empty reports whether the templates were equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two templates. Both are normalized through JSON first so
// a synthesized template (ints, typed intrinsics) compares equal to the same
// template read back from disk (float64, plain maps).
func Compare(before, after *logexport.Template, opts Options) (*Result, error) {
	res1, err := normalizeResources(before)
	if err != nil {
		return nil, fmt.Errorf("normalizing old template: %w", err)
	}
	res2, err := normalizeResources(after)
	if err != nil {
		return nil, fmt.Errorf("normalizing new template: %w", err)
	}

	result := &Result{}

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, logexport.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, logexport.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		def2, exists := res2[name]
		if !exists {
			continue
		}
		if changes := compareResources(def1, def2, opts); len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, logexport.DiffEntry{
				Resource: name,
				Type:     def2.Type,
				Changes:  changes,
			})
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = logexport.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*logexport.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a JSON or YAML template body.
func ParseTemplate(data []byte) (*logexport.Template, error) {
	var template logexport.Template

	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	if template.Resources == nil {
		template.Resources = map[string]logexport.ResourceDef{}
	}

	return &template, nil
}

// normalizeResources round-trips the resources through JSON.
func normalizeResources(t *logexport.Template) (map[string]logexport.ResourceDef, error) {
	if t == nil || len(t.Resources) == 0 {
		return map[string]logexport.ResourceDef{}, nil
	}
	data, err := json.Marshal(t.Resources)
	if err != nil {
		return nil, err
	}
	var out map[string]logexport.ResourceDef
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func compareResources(def1, def2 logexport.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSets(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties walks nested objects so a change is reported at the
// deepest differing key, e.g. "Target.RetryPolicy.MaximumRetryAttempts".
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := joinPath(prefix, key)

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}
		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}
		if !deepEqual(val1, val2, opts) {
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", joinPath(prefix, key)))
		}
	}

	sort.Strings(changes)
	return changes
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// isIntrinsic reports whether m is a single-key intrinsic such as Ref or
// Fn::GetAtt, which is compared as a whole.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts arrays by their JSON encoding so element order no
// longer matters.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
			data, _ := json.Marshal(result[i])
			keys[i] = string(data)
		}
		sort.Sort(byKey{keys: keys, values: result})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	keys   []string
	values []any
}

func (b byKey) Len() int           { return len(b.keys) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.values[i], b.values[j] = b.values[j], b.values[i]
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]string(nil), a...)
	b = append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortEntries(entries []logexport.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
