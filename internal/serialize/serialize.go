// Package serialize converts typed resource structs into CloudFormation
// property maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	logexport "github.com/lex00/logexport-aws-go"
)

// Properties serializes a typed resource to its CloudFormation properties.
// It handles:
// - json tag names (BucketName, not bucket_name)
// - omitting nil/zero values, including AttrRef fields tagged "-"
// - nested property structs
// - intrinsics and other json.Marshaler values (Fn::GetAtt, Fn::Sub, ...)
func Properties(res logexport.Resource) (map[string]any, error) {
	if res == nil {
		return nil, fmt.Errorf("nil resource")
	}
	val := reflect.ValueOf(res)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("nil %s", res.ResourceType())
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: expected struct, got %s", res.ResourceType(), val.Kind())
	}
	return structFields(val)
}

// Value serializes an arbitrary value (an output value, a policy document)
// to plain maps, slices and scalars.
func Value(v any) (any, error) {
	return serializeValue(reflect.ValueOf(v))
}

func structFields(val reflect.Value) (map[string]any, error) {
	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := fieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// fieldName returns the json field name for a struct field.
func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue reports whether the value should be left out of the output.
// Pointers are kept when non-nil so *int can carry an explicit zero.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		// Marshalers with pointer receivers are handled below on the pointer.
		if _, ok := v.Interface().(json.Marshaler); !ok {
			return serializeValue(v.Elem())
		}
	}

	if v.CanInterface() {
		if marshaler, ok := v.Interface().(json.Marshaler); ok {
			return fromJSON(marshaler)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return structFields(v)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			if v.Kind() == reflect.Slice && !v.IsNil() {
				return []any{}, nil
			}
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[fmt.Sprint(iter.Key().Interface())] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return nil, fmt.Errorf("unsupported kind %s", v.Kind())
	}
}

// fromJSON runs a json.Marshaler and decodes the result into plain values.
func fromJSON(m json.Marshaler) (any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
