package schema

import (
	"regexp"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/operator"
	"github.com/roach88/sift/internal/queryir"
)

// identRe matches names that are safe to use unquoted as identifiers.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Attribute is one queryable property of an entity.
type Attribute struct {
	Name   string  // Name used in filter field names
	Column string  // Storage column; defaults to Name
	Type   ir.Type // Scalar type of stored values
}

// Join tells a query backend how to reach another entity's table.
type Join struct {
	Table string // Joined table
	On    string // Join condition, e.g. "users.id = posts.author_id"
}

// Entity describes a stored record type that filters target.
type Entity struct {
	Name       string
	Table      string // Defaults to Name
	Key        string // Attribute used as a final sort tiebreaker (optional)
	Attributes []Attribute
	Joins      []Join

	index map[string]int
}

// NewEntity validates e and returns an immutable copy ready for use in definitions.
func NewEntity(e Entity) (*Entity, error) {
	c := &collector{schema: e.Name}

	if !identRe.MatchString(e.Name) {
		c.add("", ErrInvalidIdentifier, "entity name %q is not an identifier", e.Name)
	}
	if e.Table == "" {
		e.Table = e.Name
	}
	if !identRe.MatchString(e.Table) {
		c.add("", ErrInvalidIdentifier, "table %q is not an identifier", e.Table)
	}

	out := &Entity{
		Name:       e.Name,
		Table:      e.Table,
		Key:        e.Key,
		Attributes: make([]Attribute, 0, len(e.Attributes)),
		Joins:      append([]Join(nil), e.Joins...),
		index:      make(map[string]int, len(e.Attributes)),
	}

	for _, a := range e.Attributes {
		if a.Column == "" {
			a.Column = a.Name
		}
		switch {
		case !identRe.MatchString(a.Name) || strings.Contains(a.Name, operator.Separator):
			c.add(a.Name, ErrInvalidIdentifier, "attribute name %q must be an identifier without %q", a.Name, operator.Separator)
			continue
		case !identRe.MatchString(a.Column):
			c.add(a.Name, ErrInvalidIdentifier, "column %q is not an identifier", a.Column)
			continue
		case !a.Type.Valid():
			c.add(a.Name, ErrInvalidType, "unknown type %q", a.Type)
			continue
		}
		if _, dup := out.index[a.Name]; dup {
			c.add(a.Name, ErrDuplicateName, "attribute declared twice")
			continue
		}
		out.index[a.Name] = len(out.Attributes)
		out.Attributes = append(out.Attributes, a)
	}

	if e.Key != "" {
		if _, ok := out.index[e.Key]; !ok {
			c.add("key", ErrUnknownAttribute, "key %q is not an attribute", e.Key)
		}
	}
	for _, j := range out.Joins {
		if !identRe.MatchString(j.Table) {
			c.add("joins", ErrInvalidIdentifier, "join table %q is not an identifier", j.Table)
		}
		if strings.TrimSpace(j.On) == "" {
			c.add("joins", ErrInvalidIdentifier, "join to %q has no condition", j.Table)
		}
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MustEntity is NewEntity for static declarations; it panics on error.
func MustEntity(e Entity) *Entity {
	out, err := NewEntity(e)
	if err != nil {
		panic(err)
	}
	return out
}

// Attribute looks up an attribute by name.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	i, ok := e.index[name]
	if !ok {
		return Attribute{}, false
	}
	return e.Attributes[i], true
}

// HasAttribute reports whether name is an attribute of e.
func (e *Entity) HasAttribute(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Column returns the storage column of attribute a.
func (e *Entity) Column(a Attribute) queryir.Column {
	return queryir.Column{Table: e.Table, Name: a.Column}
}

// KeyColumn returns the tiebreaker column, if the entity declares a key.
func (e *Entity) KeyColumn() (queryir.Column, bool) {
	a, ok := e.Attribute(e.Key)
	if !ok {
		return queryir.Column{}, false
	}
	return e.Column(a), true
}

// JoinFor returns the declared join to table.
func (e *Entity) JoinFor(table string) (Join, bool) {
	for _, j := range e.Joins {
		if j.Table == table {
			return j, true
		}
	}
	return Join{}, false
}
