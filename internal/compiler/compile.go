package compiler

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/sift/internal/schema"
)

// CompileSchemas builds a registry from a CUE value holding `entity` and
// `filter` structs.
//
// Filters may nest other filters by name; they are defined in dependency
// order, and nesting cycles are rejected. Every problem found is returned;
// the registry holds whatever compiled cleanly.
func CompileSchemas(v cue.Value) (*schema.Registry, []error) {
	reg := schema.NewRegistry()
	var errs []error

	if err := v.Err(); err != nil {
		return reg, []error{formatCUEError("", err)}
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if entitiesVal.Exists() {
		iter, err := entitiesVal.Fields()
		if err != nil {
			return reg, []error{formatCUEError("entity", err)}
		}
		for iter.Next() {
			e, err := CompileEntity(iter.Value())
			if err != nil {
				errs = append(errs, flatten(err)...)
				continue
			}
			if err := reg.AddEntity(e); err != nil {
				errs = append(errs, &CompileError{Field: "entity." + e.Name, Message: err.Error(), Pos: iter.Value().Pos(), Err: err})
			}
		}
	}

	decls := make(map[string]*filterDecl)
	var order []string
	filtersVal := v.LookupPath(cue.ParsePath("filter"))
	if filtersVal.Exists() {
		iter, err := filtersVal.Fields()
		if err != nil {
			return reg, append(errs, formatCUEError("filter", err))
		}
		for iter.Next() {
			d, err := parseFilter(iter.Value())
			if err != nil {
				errs = append(errs, flatten(err)...)
				continue
			}
			decls[d.name] = d
			order = append(order, d.name)
		}
	}

	graph := make(dependencyGraph, len(decls))
	for _, name := range order {
		graph[name] = decls[name].references()
	}
	blocked := make(map[string]bool)
	for _, cycle := range findCycles(graph) {
		for _, name := range cycle {
			blocked[name] = true
		}
		d := decls[cycle[0]]
		errs = append(errs, &CompileError{
			Field:   "filter." + d.name,
			Message: "nesting cycle: " + strings.Join(cycle, " → "),
			Pos:     d.value.Pos(),
		})
	}

	c := &defineState{reg: reg, decls: decls, defined: make(map[string]*schema.Definition), failed: blocked}
	for _, name := range order {
		c.define(name)
	}
	errs = append(errs, c.errs...)

	if len(decls) == 0 && len(errs) == 0 && len(reg.EntityNames()) == 0 {
		errs = append(errs, &CompileError{Field: "filter", Message: "no entities or filters found", Pos: v.Pos()})
	}
	return reg, errs
}

type defineState struct {
	reg     *schema.Registry
	decls   map[string]*filterDecl
	defined map[string]*schema.Definition
	failed  map[string]bool
	errs    []error
}

// define defines name after the filters it nests. Each filter is attempted
// at most once and reports its own errors.
func (c *defineState) define(name string) (*schema.Definition, bool) {
	if def, ok := c.defined[name]; ok {
		return def, true
	}
	if c.failed[name] {
		return nil, false
	}
	// Marked up front; cycles were excluded already, so this only stops
	// repeated attempts.
	c.failed[name] = true
	d := c.decls[name]

	entity, ok := c.reg.Entity(d.entity)
	if !ok {
		c.errs = append(c.errs, &CompileError{
			Field:   "filter." + name + ".entity",
			Message: fmt.Sprintf("unknown entity %q", d.entity),
			Pos:     d.value.LookupPath(cue.ParsePath("entity")).Pos(),
		})
		return nil, false
	}

	consts := d.consts
	consts.Entity = entity
	fields := make([]schema.Field, 0, len(d.fields))
	clean := true
	for _, f := range d.fields {
		if f.nested == "" {
			fields = append(fields, f.field)
			continue
		}
		field := "filter." + name + ".fields." + f.field.Name
		if _, ok := c.decls[f.nested]; !ok {
			c.errs = append(c.errs, &CompileError{Field: field, Message: fmt.Sprintf("unknown filter %q", f.nested), Pos: f.value.Pos()})
			clean = false
			continue
		}
		child, ok := c.define(f.nested)
		if !ok {
			c.errs = append(c.errs, &CompileError{Field: field, Message: fmt.Sprintf("nested filter %s did not compile", f.nested), Pos: f.value.Pos()})
			clean = false
			continue
		}
		prefixed, err := schema.WithPrefix(f.prefix, child)
		if err != nil {
			c.errs = append(c.errs, flatten(declarationErrors(field, err, noLookup, f.value.Pos()))...)
			clean = false
			continue
		}
		nf := f.field
		nf.Nested = prefixed
		fields = append(fields, nf)
	}
	if !clean {
		return nil, false
	}

	def, err := schema.Define(name, consts, fields...)
	if err != nil {
		c.errs = append(c.errs, flatten(declarationErrors("filter."+name, err, func(field string) cue.Value {
			return d.value.LookupPath(cue.MakePath(cue.Str("fields"), cue.Str(field)))
		}, d.value.Pos()))...)
		return nil, false
	}
	if err := c.reg.Add(def); err != nil {
		c.errs = append(c.errs, &CompileError{Field: "filter." + name, Message: err.Error(), Pos: d.value.Pos(), Err: err})
		return nil, false
	}
	delete(c.failed, name)
	c.defined[name] = def
	return def, true
}

func noLookup(string) cue.Value { return cue.Value{} }

// flatten expands an Errors list into individual errors.
func flatten(err error) []error {
	var list Errors
	if errors.As(err, &list) {
		out := make([]error, len(list))
		for i, e := range list {
			out[i] = e
		}
		return out
	}
	return []error{err}
}
