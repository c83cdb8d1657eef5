package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type names the scalar type of an attribute or field.
type Type string

const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeUUID   Type = "uuid"
	TypeTime   Type = "time"
)

var typeAliases = map[string]Type{
	"string":   TypeString,
	"str":      TypeString,
	"text":     TypeString,
	"int":      TypeInt,
	"integer":  TypeInt,
	"float":    TypeFloat,
	"number":   TypeFloat,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"uuid":     TypeUUID,
	"time":     TypeTime,
	"datetime": TypeTime,
	"date":     TypeTime,
}

// ParseType resolves a declared type name (case-insensitive, common aliases accepted).
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown type %q", name)
	}
	return t, nil
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeUUID, TypeTime:
		return true
	}
	return false
}

// CoerceError describes a raw value that cannot be represented as a Type.
type CoerceError struct {
	Type Type
	Raw  any
	Err  error
}

func (e *CoerceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot use %s as %s: %v", describe(e.Raw), e.Type, e.Err)
	}
	return fmt.Sprintf("cannot use %s as %s", describe(e.Raw), e.Type)
}

func (e *CoerceError) Unwrap() error { return e.Err }

func describe(raw any) string {
	if s, ok := raw.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v (%T)", raw, raw)
}

// timeLayouts are tried in order when parsing time strings.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Coerce converts a raw input (string, native Go scalar or Value) to a Value of type t.
// Strings are parsed; natives are converted when the conversion is lossless.
func Coerce(t Type, raw any) (Value, error) {
	if v, ok := raw.(Value); ok {
		if _, isList := v.(List); isList {
			return nil, &CoerceError{Type: t, Raw: raw, Err: fmt.Errorf("expected a scalar")}
		}
		if s, isString := v.(String); isString {
			raw = string(s)
		} else if matches(t, v) {
			return v, nil
		} else {
			raw = v.String()
		}
	}

	switch t {
	case TypeString:
		return coerceString(raw)
	case TypeInt:
		return coerceInt(raw)
	case TypeFloat:
		return coerceFloat(raw)
	case TypeBool:
		return coerceBool(raw)
	case TypeUUID:
		return coerceUUID(raw)
	case TypeTime:
		return coerceTime(raw)
	default:
		return nil, &CoerceError{Type: t, Raw: raw, Err: fmt.Errorf("unknown type")}
	}
}

func matches(t Type, v Value) bool {
	switch v.(type) {
	case String:
		return t == TypeString
	case Int:
		return t == TypeInt
	case Float:
		return t == TypeFloat
	case Bool:
		return t == TypeBool
	case UUID:
		return t == TypeUUID
	case Time:
		return t == TypeTime
	}
	return false
}

func coerceString(raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		return String(val), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return String(fmt.Sprint(val)), nil
	case json.Number:
		return String(val.String()), nil
	}
	return nil, &CoerceError{Type: TypeString, Raw: raw}
}

func coerceInt(raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, &CoerceError{Type: TypeInt, Raw: raw, Err: numError(err)}
		}
		return Int(n), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, &CoerceError{Type: TypeInt, Raw: raw, Err: fmt.Errorf("out of range")}
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, &CoerceError{Type: TypeInt, Raw: raw, Err: fmt.Errorf("out of range")}
		}
		return Int(val), nil
	case float64:
		// YAML and JSON decoders hand numbers over as float64.
		if val != math.Trunc(val) || math.Abs(val) > 1<<53 {
			return nil, &CoerceError{Type: TypeInt, Raw: raw, Err: fmt.Errorf("not an integer")}
		}
		return Int(int64(val)), nil
	case json.Number:
		return coerceInt(val.String())
	}
	return nil, &CoerceError{Type: TypeInt, Raw: raw}
}

func coerceFloat(raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, &CoerceError{Type: TypeFloat, Raw: raw, Err: numError(err)}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &CoerceError{Type: TypeFloat, Raw: raw, Err: fmt.Errorf("not a finite number")}
		}
		return Float(f), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case int:
		return Float(val), nil
	case int64:
		return Float(val), nil
	case int32:
		return Float(val), nil
	case json.Number:
		return coerceFloat(val.String())
	}
	return nil, &CoerceError{Type: TypeFloat, Raw: raw}
}

func coerceBool(raw any) (Value, error) {
	switch val := raw.(type) {
	case bool:
		return Bool(val), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y", "on":
			return Bool(true), nil
		case "false", "f", "0", "no", "n", "off":
			return Bool(false), nil
		}
	case int:
		if val == 0 || val == 1 {
			return Bool(val == 1), nil
		}
	case int64:
		if val == 0 || val == 1 {
			return Bool(val == 1), nil
		}
	}
	return nil, &CoerceError{Type: TypeBool, Raw: raw}
}

func coerceUUID(raw any) (Value, error) {
	switch val := raw.(type) {
	case uuid.UUID:
		return UUID(val), nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(val))
		if err != nil {
			return nil, &CoerceError{Type: TypeUUID, Raw: raw, Err: err}
		}
		return UUID(id), nil
	}
	return nil, &CoerceError{Type: TypeUUID, Raw: raw}
}

func coerceTime(raw any) (Value, error) {
	switch val := raw.(type) {
	case time.Time:
		return Time(val.UTC()), nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return Time(ts.UTC()), nil
			}
		}
		return nil, &CoerceError{Type: TypeTime, Raw: raw, Err: fmt.Errorf("expected RFC 3339 or YYYY-MM-DD")}
	}
	return nil, &CoerceError{Type: TypeTime, Raw: raw}
}

// numError strips the strconv prefix, which repeats the input.
func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}

// CoerceList converts a sequence or comma-separated string into a List of type t.
// A string is split on commas without trimming; each element is coerced on its own.
// The error reports the first failing element by index.
func CoerceList(t Type, raw any) (List, error) {
	var items []any
	switch val := raw.(type) {
	case string:
		for _, part := range strings.Split(val, ",") {
			items = append(items, part)
		}
	case List:
		for _, v := range val {
			items = append(items, v)
		}
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case []any:
		items = val
	case []int:
		for _, n := range val {
			items = append(items, n)
		}
	case []int64:
		for _, n := range val {
			items = append(items, n)
		}
	case []float64:
		for _, f := range val {
			items = append(items, f)
		}
	default:
		return nil, &CoerceError{Type: t, Raw: raw, Err: fmt.Errorf("expected a list")}
	}

	out := make(List, 0, len(items))
	for i, item := range items {
		v, err := Coerce(t, item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
