package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/schema"
)

// CompileEntity parses a CUE value into an entity.
//
// The value is the entity struct itself:
//
//	entity: users: {
//		table: "users"
//		key:   "id"
//		attributes: {id: "int", created: {type: "time", column: "created_at"}}
//		joins: {posts: "\"posts\".\"author_id\" = \"users\".\"id\""}
//	}
func CompileEntity(v cue.Value) (*schema.Entity, error) {
	path := v.Path().String()
	if err := v.Err(); err != nil {
		return nil, formatCUEError(path, err)
	}

	e := schema.Entity{Name: lastLabel(v)}

	var err error
	if e.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if e.Key, err = optionalString(v, "key"); err != nil {
		return nil, err
	}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, &CompileError{Field: path + ".attributes", Message: "attributes are required", Pos: v.Pos()}
	}
	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(path+".attributes", err)
	}
	for iter.Next() {
		attr, err := parseAttribute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.Attributes = append(e.Attributes, attr)
	}

	joinsVal := v.LookupPath(cue.ParsePath("joins"))
	if joinsVal.Exists() {
		iter, err := joinsVal.Fields()
		if err != nil {
			return nil, formatCUEError(path+".joins", err)
		}
		for iter.Next() {
			on, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(iter.Value().Path().String(), err)
			}
			e.Joins = append(e.Joins, schema.Join{Table: iter.Label(), On: on})
		}
	}

	out, err := schema.NewEntity(e)
	if err != nil {
		return nil, declarationErrors(path, err, func(field string) cue.Value {
			return v.LookupPath(cue.MakePath(cue.Str("attributes"), cue.Str(field)))
		}, v.Pos())
	}
	return out, nil
}

// parseAttribute accepts `name: "type"` or `name: {type: "...", column: "..."}`.
func parseAttribute(name string, v cue.Value) (schema.Attribute, error) {
	path := v.Path().String()
	attr := schema.Attribute{Name: name}

	typeVal := v
	if v.IncompleteKind() == cue.StructKind {
		typeVal = v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return attr, &CompileError{Field: path, Message: "attribute type is required", Pos: v.Pos()}
		}
		col, err := optionalString(v, "column")
		if err != nil {
			return attr, err
		}
		attr.Column = col
	}

	typeName, err := typeVal.String()
	if err != nil {
		return attr, formatCUEError(path, err)
	}
	attr.Type, err = ir.ParseType(typeName)
	if err != nil {
		return attr, &CompileError{Field: path, Message: err.Error(), Pos: typeVal.Pos(), Err: err}
	}
	return attr, nil
}

func lastLabel(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1].Unquoted()
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(f.Path().String(), err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(f.Path().String(), err)
	}
	return b, nil
}

func optionalStrings(v cue.Value, name string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(f.Path().String(), err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(iter.Value().Path().String(), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// decode converts a concrete CUE scalar or list into the Go values schema
// defaults accept.
func decode(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.BoolKind:
		return v.Bool()
	case cue.NullKind:
		return nil, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for iter.Next() {
			elem, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.IncompleteKind())
	}
}
