package ir

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for snapshots and fingerprints.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (RFC 8785), not UTF-8 bytes
//  2. No HTML escaping; only quote, backslash and control characters are escaped
//  3. Strings are NFC normalized
//  4. Floats use the shortest round-trip form; NaN and Inf are rejected
//  5. UUID and Time values are rendered as strings
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		writeString(buf, string(val))
	case string:
		writeString(buf, val)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case Float:
		return writeFloat(buf, float64(val))
	case float64:
		return writeFloat(buf, val)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case UUID, Time:
		writeString(buf, val.(Value).String())
	case List:
		return writeArray(buf, len(val), func(i int) any { return val[i] })
	case []any:
		return writeArray(buf, len(val), func(i int) any { return val[i] })
	case []string:
		return writeArray(buf, len(val), func(i int) any { return val[i] })
	case []map[string]any:
		return writeArray(buf, len(val), func(i int) any { return val[i] })
	case map[string]any:
		return writeObject(buf, val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return writeObject(buf, obj)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite float in canonical JSON: %v", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func writeArray(buf *bytes.Buffer, n int, at func(int) any) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, at(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("object[%q]: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string after NFC normalization.
func writeString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		case r == utf8.RuneError && size == 1:
			buf.WriteString(`�`)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is by UTF-8 bytes, which differs above U+FFFF.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
