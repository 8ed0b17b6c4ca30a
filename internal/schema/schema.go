// Package schema provides offline validation of the resource types a log
// archive template contains.
package schema

import (
	"fmt"
	"sort"
	"strings"

	logexport "github.com/lex00/logexport-aws-go"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties the schema does not know.
	Strict bool
}

// Error is a single schema finding.
type Error struct {
	Resource string
	Property string
	Message  string
}

func (e Error) String() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Error
}

// ValidateTemplate validates every resource of t against its schema.
// Resources are visited in name order.
func ValidateTemplate(t *logexport.Template, opts Options) *Result {
	result := &Result{Valid: true}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, t.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateResource(name string, resource logexport.ResourceDef, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := lookup(resource.Properties, required); !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(schema.Properties))
	for path := range schema.Properties {
		props = append(props, path)
	}
	sort.Strings(props)
	for _, path := range props {
		value, exists := lookup(resource.Properties, path)
		if !exists {
			continue
		}
		errs = append(errs, validateProperty(name, path, value, schema.Properties[path])...)
	}

	if opts.Strict {
		for propName := range resource.Properties {
			if !schema.knows(propName) {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
		}
	}

	return errs, warnings
}

// lookup resolves a dotted property path such as "Target.Arn".
func lookup(props map[string]any, path string) (any, bool) {
	var cur any = props
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// isValidResourceType checks the AWS::Service::Resource or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS"
}

func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errs []Error

	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
		return errs
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok && !contains(schema.AllowedValues, strVal) {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
			})
		}
	}

	if schema.Min != nil || schema.Max != nil {
		if n, ok := number(value); ok {
			if (schema.Min != nil && n < *schema.Min) || (schema.Max != nil && n > *schema.Max) {
				errs = append(errs, Error{
					Resource: resource,
					Property: property,
					Message:  fmt.Sprintf("value %v outside %s", value, schema.bounds()),
				})
			}
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions match every type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		_, ok := number(value)
		return ok
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		switch value.(type) {
		case []any, []string, []map[string]any:
			return true
		}
		return false
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
