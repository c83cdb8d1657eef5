package schema

import (
	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/operator"
)

// Field is a field as written in a declaration.
//
// Type may be left empty: filter fields inherit the attribute type, isnull
// fields are bool, the search field is a string and the ordering field is a
// list of strings.
type Field struct {
	Name        string      // Declared name without prefix, e.g. "age__gte"
	Type        ir.Type     // Element type (optional, see above)
	List        bool        // Value is a list of Type
	Required    bool        // Request must supply the field
	Default     any         // Raw default, coerced when declared
	Nested      *Definition // Set for a nested schema field
	Description string      // Shown in parameter documentation
}

// Role classifies what a declared field does.
type Role int

const (
	RoleFilter   Role = iota // compares one attribute
	RoleOrdering             // the ordering field
	RoleSearch               // the free-text search field
	RoleNested               // a nested schema instance
)

func (r Role) String() string {
	switch r {
	case RoleFilter:
		return "filter"
	case RoleOrdering:
		return "ordering"
	case RoleSearch:
		return "search"
	case RoleNested:
		return "nested"
	}
	return "unknown"
}

// FieldRef is the parsed form of a filter field name: the attribute it
// compares and the operator it compares with.
type FieldRef struct {
	Attribute Attribute
	Operator  operator.Operator
}

// FieldDecl is a field resolved against its definition. Immutable.
type FieldDecl struct {
	name     string
	role     Role
	typ      ir.Type
	list     bool
	required bool
	def      ir.Value
	ref      FieldRef
	nested   *Definition
	desc     string
}

// Name returns the declared (unprefixed) name.
func (f *FieldDecl) Name() string { return f.name }

// Role returns what the field does.
func (f *FieldDecl) Role() Role { return f.role }

// Type returns the element type.
func (f *FieldDecl) Type() ir.Type { return f.typ }

// List reports whether the field holds a list.
func (f *FieldDecl) List() bool { return f.list }

// Required reports whether requests must supply the field.
func (f *FieldDecl) Required() bool { return f.required }

// Default returns the coerced default, if one was declared.
// The ordering default is an ir.List of ir.String tokens.
func (f *FieldDecl) Default() (ir.Value, bool) { return f.def, f.def != nil }

// Ref returns the parsed attribute and operator of a filter field.
func (f *FieldDecl) Ref() FieldRef { return f.ref }

// Nested returns the nested definition of a nested field.
func (f *FieldDecl) Nested() *Definition { return f.nested }

// Description returns the documentation text.
func (f *FieldDecl) Description() string { return f.desc }
