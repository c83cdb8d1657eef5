package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/schema"
)

// filterDecl is a parsed filter declaration whose nested references are
// still names.
type filterDecl struct {
	name   string
	value  cue.Value
	entity string
	consts schema.Constants
	fields []fieldDecl
}

type fieldDecl struct {
	field  schema.Field
	nested string // Referenced filter name, if nested
	prefix string // Prefix for the nested filter; defaults to the field name
	value  cue.Value
}

// parseFilter reads one `filter: <Name>: {...}` struct.
func parseFilter(v cue.Value) (*filterDecl, error) {
	path := v.Path().String()
	if err := v.Err(); err != nil {
		return nil, formatCUEError(path, err)
	}

	d := &filterDecl{name: lastLabel(v), value: v}

	var err error
	if d.entity, err = optionalString(v, "entity"); err != nil {
		return nil, err
	}
	if d.entity == "" {
		return nil, &CompileError{Field: path + ".entity", Message: "entity is required", Pos: v.Pos()}
	}
	if d.consts.SearchableFields, err = optionalStrings(v, "search"); err != nil {
		return nil, err
	}
	if d.consts.SearchField, err = optionalString(v, "search_field"); err != nil {
		return nil, err
	}
	if d.consts.OrderingField, err = optionalString(v, "ordering_field"); err != nil {
		return nil, err
	}
	if d.consts.Prefix, err = optionalString(v, "prefix"); err != nil {
		return nil, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: path + ".fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(path+".fields", err)
	}
	for iter.Next() {
		fd, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.fields = append(d.fields, fd)
	}
	return d, nil
}

// parseField reads `name: {type?, list?, required?, default?, description?, nested?, prefix?}`.
func parseField(name string, v cue.Value) (fieldDecl, error) {
	fd := fieldDecl{field: schema.Field{Name: name}, value: v}

	typeName, err := optionalString(v, "type")
	if err != nil {
		return fd, err
	}
	if typeName != "" {
		t, err := ir.ParseType(typeName)
		if err != nil {
			return fd, &CompileError{Field: v.Path().String() + ".type", Message: err.Error(), Pos: v.Pos(), Err: err}
		}
		fd.field.Type = t
	}
	if fd.field.List, err = optionalBool(v, "list"); err != nil {
		return fd, err
	}
	if fd.field.Required, err = optionalBool(v, "required"); err != nil {
		return fd, err
	}
	if fd.field.Description, err = optionalString(v, "description"); err != nil {
		return fd, err
	}
	if fd.nested, err = optionalString(v, "nested"); err != nil {
		return fd, err
	}
	if fd.prefix, err = optionalString(v, "prefix"); err != nil {
		return fd, err
	}
	if fd.prefix == "" {
		fd.prefix = name
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		def, err := decode(dv)
		if err != nil {
			return fd, formatCUEError(dv.Path().String(), err)
		}
		fd.field.Default = def
	}
	return fd, nil
}

// references lists the filters d nests, in declaration order.
func (d *filterDecl) references() []string {
	var refs []string
	for _, f := range d.fields {
		if f.nested != "" {
			refs = append(refs, f.nested)
		}
	}
	return refs
}
