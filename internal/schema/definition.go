package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/operator"
)

// Default names of the special fields.
const (
	DefaultOrderingField = "order_by"
	DefaultSearchField   = "search"
)

// Constants are the schema-level settings of a Definition.
type Constants struct {
	Entity           *Entity  // Target entity (required)
	OrderingField    string   // Name of the ordering field; default "order_by"
	SearchField      string   // Name of the search field; default "search"
	SearchableFields []string // Attributes the search field matches against
	Prefix           string   // Namespace prefix for external field names
}

// Definition is a declared filter schema. Immutable once Define returns.
type Definition struct {
	name   string
	consts Constants
	fields []*FieldDecl
	byName map[string]*FieldDecl
	byExt  map[string]*FieldDecl
}

// Define declares a filter schema over c.Entity.
//
// Every field name is parsed into a FieldRef and checked against the entity
// and the operator registry. All problems are reported together as
// DeclarationErrors; a schema that declares cleanly never fails later
// because of its own declaration.
func Define(name string, c Constants, fields ...Field) (*Definition, error) {
	col := &collector{schema: name}

	if !identRe.MatchString(name) {
		col.add("", ErrInvalidIdentifier, "schema name %q is not an identifier", name)
	}
	if c.Entity == nil {
		col.add("", ErrMissingEntity, "schema has no entity")
		return nil, col.err()
	}
	if c.OrderingField == "" {
		c.OrderingField = DefaultOrderingField
	}
	if c.SearchField == "" {
		c.SearchField = DefaultSearchField
	}
	if c.Prefix != "" && !validPrefix(c.Prefix) {
		col.add("", ErrInvalidIdentifier, "prefix %q must be an identifier without %q", c.Prefix, operator.Separator)
	}
	c.SearchableFields = slices.Clone(c.SearchableFields)
	for _, s := range c.SearchableFields {
		attr, ok := c.Entity.Attribute(s)
		if !ok {
			col.add(c.SearchField, ErrInvalidSearchable, "searchable field %q is not an attribute of %s", s, c.Entity.Name)
		} else if attr.Type != ir.TypeString {
			col.add(c.SearchField, ErrInvalidSearchable, "searchable field %q is %s, not string", s, attr.Type)
		}
	}

	d := &Definition{
		name:   name,
		consts: c,
		byName: make(map[string]*FieldDecl, len(fields)),
	}
	for _, f := range fields {
		decl, ok := d.resolve(col, f)
		if !ok {
			continue
		}
		if _, dup := d.byName[decl.name]; dup {
			col.add(decl.name, ErrDuplicateName, "field declared twice")
			continue
		}
		d.byName[decl.name] = decl
		d.fields = append(d.fields, decl)
	}
	d.index(col)

	if err := col.err(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustDefine is Define for static declarations; it panics on error.
func MustDefine(name string, c Constants, fields ...Field) *Definition {
	d, err := Define(name, c, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// resolve turns a declared Field into a FieldDecl, reporting problems to col.
func (d *Definition) resolve(col *collector, f Field) (*FieldDecl, bool) {
	before := len(col.errs)
	if !identRe.MatchString(f.Name) {
		col.add(f.Name, ErrInvalidIdentifier, "field name %q is not an identifier", f.Name)
		return nil, false
	}
	if f.Type != "" && !f.Type.Valid() {
		col.add(f.Name, ErrInvalidType, "unknown type %q", f.Type)
		return nil, false
	}

	decl := &FieldDecl{
		name:     f.Name,
		typ:      f.Type,
		list:     f.List,
		required: f.Required,
		desc:     f.Description,
	}
	entity := d.consts.Entity

	switch {
	case f.Nested != nil:
		decl.role = RoleNested
		decl.nested = f.Nested
		if f.Nested.Prefix() == "" {
			col.add(f.Name, ErrInvalidNested, "nested schema %s must carry a prefix", f.Nested.Name())
		}
		if f.List || f.Type != "" || f.Default != nil {
			col.add(f.Name, ErrInvalidNested, "nested fields take no type, list or default")
		}
		return decl, len(col.errs) == before

	case f.Name == d.consts.OrderingField:
		decl.role = RoleOrdering
		decl.list = true
		if f.Type != "" && f.Type != ir.TypeString {
			col.add(f.Name, ErrOperatorType, "ordering field is a list of strings, not %s", f.Type)
		}
		decl.typ = ir.TypeString
		if f.Default != nil {
			decl.def = d.orderingDefault(col, f)
		}
		return decl, len(col.errs) == before

	case f.Name == d.consts.SearchField:
		decl.role = RoleSearch
		if len(d.consts.SearchableFields) == 0 {
			col.add(f.Name, ErrSearchNotDeclared, "search field declared but no searchable fields")
		}
		if f.List || (f.Type != "" && f.Type != ir.TypeString) {
			col.add(f.Name, ErrOperatorType, "search field must be a single string")
		}
		decl.typ = ir.TypeString

	default:
		base, suffix := operator.Split(f.Name)
		op, ok := operator.Lookup(suffix)
		if !ok {
			col.add(f.Name, ErrUnknownOperator, "unknown operator %q (known: %s)", suffix, strings.Join(operator.Suffixes(), ", "))
			return nil, false
		}
		attr, ok := entity.Attribute(base)
		if !ok {
			col.add(f.Name, ErrUnknownAttribute, "%q is not an attribute of %s", base, entity.Name)
			return nil, false
		}
		decl.role = RoleFilter
		decl.ref = FieldRef{Attribute: attr, Operator: op}
		decl.typ = operandType(col, f, attr, op)
	}

	if f.Default != nil && len(col.errs) == before {
		var err error
		if decl.list {
			decl.def, err = ir.CoerceList(decl.typ, f.Default)
		} else {
			decl.def, err = ir.Coerce(decl.typ, f.Default)
		}
		if err != nil {
			col.add(f.Name, ErrInvalidDefault, "default: %v", err)
		}
	}
	return decl, len(col.errs) == before
}

// operandType works out the field type an operator needs on attr.
func operandType(col *collector, f Field, attr Attribute, op operator.Operator) ir.Type {
	typ := f.Type
	switch op.Takes() {
	case operator.TakesBool:
		if typ == "" {
			typ = ir.TypeBool
		}
		if typ != ir.TypeBool || f.List {
			col.add(f.Name, ErrOperatorType, "%s takes a single bool", op.Name())
		}
	case operator.TakesText:
		if attr.Type != ir.TypeString {
			col.add(f.Name, ErrOperatorType, "%s needs a string attribute, %s is %s", op.Name(), attr.Name, attr.Type)
		}
		if typ == "" {
			typ = ir.TypeString
		}
		if typ != ir.TypeString || f.List {
			col.add(f.Name, ErrOperatorType, "%s takes a single string", op.Name())
		}
	case operator.TakesList:
		if f.List {
			if typ == "" {
				typ = attr.Type
			}
			if typ != attr.Type {
				col.add(f.Name, ErrOperatorType, "%s list elements must be %s, not %s", op.Name(), attr.Type, typ)
			}
		} else {
			if typ == "" {
				typ = ir.TypeString
			}
			if typ != ir.TypeString {
				col.add(f.Name, ErrOperatorType, "%s without list takes a comma-separated string, not %s", op.Name(), typ)
			}
		}
	default:
		if typ == "" {
			typ = attr.Type
		}
		if typ != attr.Type {
			col.add(f.Name, ErrOperatorType, "%s is %s, field declares %s", attr.Name, attr.Type, typ)
		}
		if f.List {
			col.add(f.Name, ErrOperatorType, "%s takes a single value", op.Name())
		}
	}
	return typ
}

// orderingDefault validates the ordering default like a request value would be.
func (d *Definition) orderingDefault(col *collector, f Field) ir.Value {
	tokens, err := ParseOrdering(f.Default)
	if err != nil {
		col.add(f.Name, ErrInvalidDefault, "default: %v", err)
		return nil
	}
	invalid, duplicated := d.consts.Entity.CheckOrdering(tokens)
	if len(invalid) > 0 {
		col.add(f.Name, ErrInvalidDefault, "default: invalid ordering fields: %s", strings.Join(invalid, ", "))
	}
	if len(duplicated) > 0 {
		col.add(f.Name, ErrInvalidDefault, "default: duplicated ordering fields: %s", strings.Join(duplicated, ", "))
	}
	if len(tokens) == 0 {
		return nil
	}
	list := make(ir.List, len(tokens))
	for i, tok := range tokens {
		list[i] = ir.String(tok)
	}
	return list
}

// index builds the external-name lookup and checks that flat keys owned by
// nested schemas do not collide with each other or with own fields.
func (d *Definition) index(col *collector) {
	d.byExt = make(map[string]*FieldDecl, len(d.fields))
	owner := make(map[string]string)
	for _, f := range d.fields {
		ext := d.ExternalName(f.name)
		d.byExt[ext] = f
		owner[ext] = f.name
	}
	for _, f := range d.fields {
		if f.role != RoleNested {
			continue
		}
		for _, key := range f.nested.Keys() {
			if other, taken := owner[key]; taken && other != f.name {
				col.add(f.name, ErrInvalidNested, "key %q is also claimed by %s", key, other)
				continue
			}
			owner[key] = f.name
		}
	}
}

func validPrefix(p string) bool {
	return identRe.MatchString(p) && !strings.Contains(p, operator.Separator)
}

// Name returns the schema name.
func (d *Definition) Name() string { return d.name }

// Entity returns the target entity.
func (d *Definition) Entity() *Entity { return d.consts.Entity }

// Prefix returns the namespace prefix, or "".
func (d *Definition) Prefix() string { return d.consts.Prefix }

// Constants returns a copy of the schema-level settings.
func (d *Definition) Constants() Constants {
	c := d.consts
	c.SearchableFields = slices.Clone(c.SearchableFields)
	return c
}

// Fields returns the declared fields in declaration order.
func (d *Definition) Fields() []*FieldDecl {
	return slices.Clone(d.fields)
}

// Field looks up a field by declared name.
func (d *Definition) Field(name string) (*FieldDecl, bool) {
	f, ok := d.byName[name]
	return f, ok
}

// FieldByExternal looks up a field by the name requests use for it.
func (d *Definition) FieldByExternal(key string) (*FieldDecl, bool) {
	f, ok := d.byExt[key]
	return f, ok
}

// ExternalName renders a declared name as requests see it: prefix__name.
func (d *Definition) ExternalName(name string) string {
	if d.consts.Prefix == "" {
		return name
	}
	return d.consts.Prefix + operator.Separator + name
}

// Ordering returns the ordering field, if the schema declares one.
func (d *Definition) Ordering() (*FieldDecl, bool) {
	f, ok := d.byName[d.consts.OrderingField]
	if !ok || f.role != RoleOrdering {
		return nil, false
	}
	return f, true
}

// Search returns the search field, if the schema declares one.
func (d *Definition) Search() (*FieldDecl, bool) {
	f, ok := d.byName[d.consts.SearchField]
	if !ok || f.role != RoleSearch {
		return nil, false
	}
	return f, true
}

// Keys lists every flat key the schema accepts, including keys of nested
// schemas, in declaration order.
func (d *Definition) Keys() []string {
	var keys []string
	for _, f := range d.fields {
		keys = append(keys, d.ExternalName(f.name))
		if f.role == RoleNested {
			keys = append(keys, f.nested.Keys()...)
		}
	}
	return keys
}

// Owner returns the field responsible for a flat key: the field with that
// external name, or the nested field whose schema accepts the key.
func (d *Definition) Owner(key string) (*FieldDecl, bool) {
	if f, ok := d.byExt[key]; ok {
		return f, true
	}
	for _, f := range d.fields {
		if f.role == RoleNested && f.nested.Accepts(key) {
			return f, true
		}
	}
	return nil, false
}

// Accepts reports whether key is a flat key of this schema.
func (d *Definition) Accepts(key string) bool {
	_, ok := d.Owner(key)
	return ok
}

// WithPrefix returns a copy of child whose external field names are
// rendered prefix__name. Fields, operators and constants are otherwise
// unchanged, so instances of both compile to the same predicates.
func WithPrefix(prefix string, child *Definition) (*Definition, error) {
	col := &collector{schema: child.name}
	if !validPrefix(prefix) {
		col.add("", ErrInvalidIdentifier, "prefix %q must be an identifier without %q", prefix, operator.Separator)
		return nil, col.err()
	}
	c := child.Constants()
	c.Prefix = prefix
	d := &Definition{
		name:   child.name,
		consts: c,
		fields: slices.Clone(child.fields),
		byName: child.byName,
	}
	d.index(col)
	if err := col.err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Describe returns a canonical-JSON friendly description of the schema.
func (d *Definition) Describe() map[string]any {
	fields := make([]any, len(d.fields))
	for i, f := range d.fields {
		entry := map[string]any{
			"name":     f.name,
			"external": d.ExternalName(f.name),
			"role":     f.role.String(),
			"required": f.required,
		}
		switch f.role {
		case RoleNested:
			entry["nested"] = f.nested.Describe()
		case RoleFilter:
			entry["attribute"] = f.ref.Attribute.Name
			entry["operator"] = f.ref.Operator.Name()
			fallthrough
		default:
			entry["type"] = string(f.typ)
			entry["list"] = f.list
		}
		if f.def != nil {
			entry["default"] = f.def
		}
		fields[i] = entry
	}
	searchable := make([]any, len(d.consts.SearchableFields))
	for i, s := range d.consts.SearchableFields {
		searchable[i] = s
	}
	return map[string]any{
		"name":           d.name,
		"entity":         d.consts.Entity.Name,
		"prefix":         d.consts.Prefix,
		"ordering_field": d.consts.OrderingField,
		"search_field":   d.consts.SearchField,
		"searchable":     searchable,
		"fields":         fields,
	}
}

// Fingerprint returns a short stable hash of the schema description.
func (d *Definition) Fingerprint() string {
	data, err := ir.MarshalCanonical(d.Describe())
	if err != nil {
		// Describe only produces canonical types.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
