// Package template builds CloudFormation templates from typed resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/serialize"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Builder collects resources and outputs and assembles them into a template.
type Builder struct {
	description string
	resources   map[string]entry
	outputs     map[string]logexport.Output
}

type entry struct {
	resource  logexport.Resource
	dependsOn []string
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]entry),
		outputs:     make(map[string]logexport.Output),
	}
}

// Add registers a resource under a logical ID. Dependencies implied by
// Ref, Fn::GetAtt and Fn::Sub are found on Build; dependsOn lists extra
// explicit ones.
func (b *Builder) Add(logicalID string, res logexport.Resource, dependsOn ...string) error {
	if logicalID == "" {
		return errors.New("empty logical ID")
	}
	if _, exists := b.resources[logicalID]; exists {
		return fmt.Errorf("duplicate logical ID %q", logicalID)
	}
	b.resources[logicalID] = entry{resource: res, dependsOn: dependsOn}
	return nil
}

// AddOutput registers a template output.
func (b *Builder) AddOutput(name string, out logexport.Output) {
	b.outputs[name] = out
}

// Len returns the number of registered resources.
func (b *Builder) Len() int {
	return len(b.resources)
}

// Build serializes every resource, checks that all references resolve and
// that the dependency graph is acyclic, and returns the template.
func (b *Builder) Build() (*logexport.Template, error) {
	t := &logexport.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]logexport.ResourceDef, len(b.resources)),
	}

	for name, e := range b.resources {
		props, err := serialize.Properties(e.resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		def := logexport.ResourceDef{
			Type:       e.resource.ResourceType(),
			Properties: props,
		}
		if len(e.dependsOn) > 0 {
			def.DependsOn = append([]string(nil), e.dependsOn...)
			sort.Strings(def.DependsOn)
		}
		t.Resources[name] = def
	}

	if len(b.outputs) > 0 {
		t.Outputs = make(map[string]logexport.Output, len(b.outputs))
		for name, out := range b.outputs {
			value, err := serialize.Value(out.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			out.Value = value
			if out.Export != nil {
				exportName, err := serialize.Value(out.Export.Name)
				if err != nil {
					return nil, fmt.Errorf("serializing output %s: %w", name, err)
				}
				out.Export = &logexport.OutputExport{Name: exportName}
			}
			t.Outputs[name] = out
		}
	}

	if err := checkReferences(t); err != nil {
		return nil, err
	}
	if _, err := Order(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkReferences reports the first reference to a resource that does not
// exist in the template.
func checkReferences(t *logexport.Template) error {
	names := sortedNames(t)
	for _, name := range names {
		for _, dep := range Dependencies(t.Resources[name]) {
			if _, ok := t.Resources[dep]; !ok {
				return fmt.Errorf("%s references unknown resource %s", name, dep)
			}
		}
	}

	outputs := make([]string, 0, len(t.Outputs))
	for name := range t.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)
	for _, name := range outputs {
		for _, ref := range References(t.Outputs[name].Value) {
			if _, ok := t.Resources[ref.Target]; !ok {
				return fmt.Errorf("output %s references unknown resource %s", name, ref.Target)
			}
		}
	}
	return nil
}

// Reference is a resource reference found inside a property value.
type Reference struct {
	// Target is the referenced logical ID.
	Target string
	// Attribute is set for Fn::GetAtt and ${Name.Attr} references.
	Attribute string
}

// References walks a serialized value and returns every resource it
// references through Ref, Fn::GetAtt or Fn::Sub, sorted and deduplicated.
// Pseudo parameters (AWS::Region, ...) are not resource references.
func References(v any) []Reference {
	seen := make(map[Reference]bool)
	collectRefs(v, seen)

	refs := make([]Reference, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Target != refs[j].Target {
			return refs[i].Target < refs[j].Target
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

func collectRefs(v any, seen map[Reference]bool) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if target, ok := val["Ref"].(string); ok {
				if !isPseudo(target) {
					seen[Reference{Target: target}] = true
				}
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				if r, ok := getAttRef(getAtt); ok {
					seen[r] = true
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, seen)
				return
			}
		}
		for _, elem := range val {
			collectRefs(elem, seen)
		}
	case []any:
		for _, elem := range val {
			collectRefs(elem, seen)
		}
	}
}

func getAttRef(v any) (Reference, bool) {
	switch args := v.(type) {
	case []any:
		if len(args) == 2 {
			target, ok1 := args[0].(string)
			attr, ok2 := args[1].(string)
			if ok1 && ok2 {
				return Reference{Target: target, Attribute: attr}, true
			}
		}
	case string:
		target, attr, ok := strings.Cut(args, ".")
		if ok {
			return Reference{Target: target, Attribute: attr}, true
		}
	}
	return Reference{}, false
}

// collectSub handles both Fn::Sub forms: a bare string and
// [string, {variables}]. Variables defined locally shadow resources.
func collectSub(v any, seen map[Reference]bool) {
	var text string
	local := map[string]bool{}
	switch args := v.(type) {
	case string:
		text = args
	case []any:
		if len(args) == 0 {
			return
		}
		text, _ = args[0].(string)
		if len(args) > 1 {
			if vars, ok := args[1].(map[string]any); ok {
				for name, value := range vars {
					local[name] = true
					collectRefs(value, seen)
				}
			}
		}
	}

	for {
		start := strings.Index(text, "${")
		if start < 0 {
			return
		}
		end := strings.Index(text[start:], "}")
		if end < 0 {
			return
		}
		variable := text[start+2 : start+end]
		text = text[start+end+1:]

		if strings.HasPrefix(variable, "!") || isPseudo(variable) || local[variable] {
			continue
		}
		target, attr, _ := strings.Cut(variable, ".")
		if local[target] {
			continue
		}
		seen[Reference{Target: target, Attribute: attr}] = true
	}
}

func isPseudo(name string) bool {
	return strings.HasPrefix(name, "AWS::")
}

// Dependencies returns the logical IDs a resource depends on, implicit
// references and explicit DependsOn combined, sorted and deduplicated.
func Dependencies(def logexport.ResourceDef) []string {
	set := make(map[string]bool)
	for _, r := range References(def.Properties) {
		set[r.Target] = true
	}
	for _, d := range def.DependsOn {
		set[d] = true
	}
	deps := make([]string, 0, len(set))
	for d := range set {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

// Order returns the resources of t in dependency order. Ties are broken
// alphabetically so the order is stable.
func Order(t *logexport.Template) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range t.Resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, def := range t.Resources {
		for _, dep := range Dependencies(def) {
			if _, exists := t.Resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(t.Resources) {
		return nil, detectCycle(t)
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(t *logexport.Template) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range Dependencies(t.Resources[node]) {
			if _, exists := t.Resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	for _, name := range sortedNames(t) {
		if !visited[name] {
			if findCycle(name) {
				break
			}
		}
	}

	if len(cycle) > 0 {
		msg := "circular dependency detected:\n"
		for i, name := range cycle {
			msg += fmt.Sprintf("  %s (%s)", name, t.Resources[name].Type)
			if i < len(cycle)-1 {
				msg += "\n    → "
			}
		}
		return errors.New(msg)
	}

	return errors.New("circular dependency detected")
}

func sortedNames(t *logexport.Template) []string {
	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToJSON serializes the template to JSON.
func ToJSON(t *logexport.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *logexport.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// Encode serializes the template in the named format ("json" or "yaml").
func Encode(t *logexport.Template, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return ToJSON(t)
	case "yaml", "yml":
		return ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
