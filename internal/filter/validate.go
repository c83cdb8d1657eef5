package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/operator"
	"github.com/roach88/sift/internal/schema"
)

// Validate turns raw parameters into an Instance of def.
//
// raw is keyed by external field names. Values may be strings, native Go
// scalars, sequences, nil (explicit null) or, for a nested field addressed
// by its own name, a map keyed by the nested schema's external names.
//
// The first pass rejects unknown keys and coerces every field, collecting
// all failures. Only if it succeeds does the second pass check the
// ordering field against the entity. Failures are *ValidationError.
func Validate(def *schema.Definition, raw map[string]any) (*Instance, error) {
	in, errs := coerce(def, raw)
	if len(errs) > 0 {
		return nil, &ValidationError{Schema: def.Name(), Stage: StageCoercion, Errors: errs}
	}
	if errs := checkOrdering(in); len(errs) > 0 {
		return nil, &ValidationError{Schema: def.Name(), Stage: StageSemantic, Errors: errs}
	}
	return in, nil
}

// coerce is the first pass. Nested schemas are validated recursively and
// their errors merged under their external names.
func coerce(def *schema.Definition, raw map[string]any) (*Instance, []FieldError) {
	in := newInstance(def)
	var errs []FieldError

	direct := make(map[string]any)
	routed := make(map[string]map[string]any)
	var unknown []string
	for key, val := range raw {
		f, ok := def.Owner(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if f.Role() == schema.RoleNested && def.ExternalName(f.Name()) != key {
			if routed[f.Name()] == nil {
				routed[f.Name()] = make(map[string]any)
			}
			routed[f.Name()][key] = val
			continue
		}
		direct[f.Name()] = val
	}

	for _, f := range def.Fields() {
		ext := def.ExternalName(f.Name())
		val, present := direct[f.Name()]

		if f.Role() == schema.RoleNested {
			sub, fe := nestedInput(ext, val, present, routed[f.Name()])
			if fe != nil {
				errs = append(errs, *fe)
				continue
			}
			if sub == nil {
				if present {
					in.set(f.Name(), nil)
				} else if f.Required() {
					errs = append(errs, missing(ext))
				}
				continue
			}
			child, childErrs := coerce(f.Nested(), sub)
			if len(childErrs) > 0 {
				errs = append(errs, childErrs...)
				continue
			}
			in.set(f.Name(), Nested{Instance: child})
			continue
		}

		if !present {
			if f.Required() {
				errs = append(errs, missing(ext))
			}
			continue
		}
		if val == nil {
			in.set(f.Name(), nil)
			continue
		}
		fv, err := coerceField(f, val)
		if err != nil {
			errs = append(errs, FieldError{Kind: KindTypeCoercion, Field: ext, Message: err.Error()})
			continue
		}
		in.set(f.Name(), fv)
	}

	slices.Sort(unknown)
	for _, key := range unknown {
		errs = append(errs, FieldError{Kind: KindUnknownField, Field: key, Message: "unknown field"})
	}
	return in, errs
}

// nestedInput merges a nested field's native map value with the flat keys
// routed to it. A nil result means the nested instance is absent.
func nestedInput(ext string, val any, present bool, routed map[string]any) (map[string]any, *FieldError) {
	if !present || val == nil {
		if len(routed) == 0 {
			return nil, nil
		}
		return routed, nil
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, &FieldError{Kind: KindTypeCoercion, Field: ext, Message: fmt.Sprintf("expected an object, got %T", val)}
	}
	merged := make(map[string]any, len(m)+len(routed))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range routed {
		merged[k] = v
	}
	return merged, nil
}

func missing(ext string) FieldError {
	return FieldError{Kind: KindMissingField, Field: ext, Message: "field required"}
}

// coerceField coerces one non-null value. A nil FieldValue with a nil
// error means the value collapsed to null (an empty ordering).
func coerceField(f *schema.FieldDecl, val any) (FieldValue, error) {
	switch {
	case f.Role() == schema.RoleOrdering:
		tokens, err := schema.ParseOrdering(val)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, nil
		}
		list := make(ir.List, len(tokens))
		for i, tok := range tokens {
			list[i] = ir.String(tok)
		}
		return List{Values: list}, nil

	case f.List():
		list, err := ir.CoerceList(f.Type(), val)
		if err != nil {
			return nil, err
		}
		return List{Values: list}, nil

	default:
		single, err := singleValue(val)
		if err != nil {
			return nil, err
		}
		v, err := ir.Coerce(f.Type(), single)
		if err != nil {
			return nil, err
		}
		if splitsAtCompile(f) {
			// The compiler splits this string into a typed list; reject
			// elements it could not coerce now, while the failure is
			// still attributable to the request.
			if _, err := ir.CoerceList(f.Ref().Attribute.Type, v.String()); err != nil {
				return nil, err
			}
		}
		return Scalar{Value: v}, nil
	}
}

// splitsAtCompile reports whether f is an in/not_in field declared as a
// plain comma-separated string.
func splitsAtCompile(f *schema.FieldDecl) bool {
	return f.Role() == schema.RoleFilter && !f.List() && f.Ref().Operator.Takes() == operator.TakesList
}

// singleValue unwraps one-element sequences, the shape repeated-key
// transports produce for scalar parameters.
func singleValue(val any) (any, error) {
	switch seq := val.(type) {
	case []string:
		if len(seq) != 1 {
			return nil, fmt.Errorf("expected a single value, got %d", len(seq))
		}
		return seq[0], nil
	case []any:
		if len(seq) != 1 {
			return nil, fmt.Errorf("expected a single value, got %d", len(seq))
		}
		return seq[0], nil
	}
	return val, nil
}

// checkOrdering is the second pass: ordering names must be attributes of
// the entity and must not repeat. Both problems are reported together.
func checkOrdering(in *Instance) []FieldError {
	var errs []FieldError
	def := in.def

	if f, ok := def.Ordering(); ok {
		if v, ok := in.values[f.Name()].(List); ok {
			tokens := make([]string, len(v.Values))
			for i, tok := range v.Values {
				tokens[i] = tok.String()
			}
			ext := def.ExternalName(f.Name())
			invalid, duplicated := def.Entity().CheckOrdering(tokens)
			if len(invalid) > 0 {
				errs = append(errs, FieldError{
					Kind:    KindInvalidOrdering,
					Field:   ext,
					Names:   invalid,
					Message: "Invalid ordering fields: " + strings.Join(invalid, ", "),
				})
			}
			if len(duplicated) > 0 {
				errs = append(errs, FieldError{
					Kind:    KindDuplicateOrdering,
					Field:   ext,
					Names:   duplicated,
					Message: "Duplicated ordering fields: " + strings.Join(duplicated, ", "),
				})
			}
		}
	}

	for _, f := range def.Fields() {
		if nested, ok := in.values[f.Name()].(Nested); ok {
			errs = append(errs, checkOrdering(nested.Instance)...)
		}
	}
	return errs
}
