package ir

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value is a sealed interface representing a coerced filter value.
// Only Null, String, Int, Float, Bool, UUID, Time and List implement it.
type Value interface {
	value() // Sealed - only these types implement it

	// String renders the value in its wire form.
	String() string
}

// Null is an explicitly supplied null.
type Null struct{}

func (Null) value() {}

func (Null) String() string { return "" }

// String is a text value.
type String string

func (String) value() {}

func (s String) String() string { return string(s) }

// Int is an integer value. Always int64.
type Int int64

func (Int) value() {}

func (n Int) String() string { return strconv.FormatInt(int64(n), 10) }

// Float is a floating point value.
type Float float64

func (Float) value() {}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// UUID is an RFC 4122 identifier.
type UUID uuid.UUID

func (UUID) value() {}

func (u UUID) String() string { return uuid.UUID(u).String() }

// Time is an instant, always held in UTC.
type Time time.Time

func (Time) value() {}

func (t Time) String() string { return time.Time(t).UTC().Format(time.RFC3339Nano) }

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// String joins the elements with commas, the wire form of a list parameter.
func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// Native converts a Value into a database/sql parameter.
// UUIDs become their string form; lists become []any.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case UUID:
		return val.String()
	case Time:
		return time.Time(val).UTC()
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	default:
		return nil
	}
}

// IsNull reports whether v is absent or an explicit null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
