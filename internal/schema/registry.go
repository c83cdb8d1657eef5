package schema

import (
	"fmt"
	"slices"
)

// Registry holds the entities and definitions loaded at startup.
//
// Registration is not synchronized: fill the registry before serving, then
// treat it as read-only. Lookups are safe for concurrent use afterwards.
type Registry struct {
	entities map[string]*Entity
	defs     map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		defs:     make(map[string]*Definition),
	}
}

// AddEntity registers an entity under its name.
func (r *Registry) AddEntity(e *Entity) error {
	if _, dup := r.entities[e.Name]; dup {
		return fmt.Errorf("entity %q already registered", e.Name)
	}
	r.entities[e.Name] = e
	return nil
}

// Entity looks up a registered entity.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Add registers a definition under its name.
func (r *Registry) Add(d *Definition) error {
	if _, dup := r.defs[d.Name()]; dup {
		return fmt.Errorf("schema %q already registered", d.Name())
	}
	r.defs[d.Name()] = d
	return nil
}

// Get looks up a registered definition.
func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered definition names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// EntityNames returns the registered entity names, sorted.
func (r *Registry) EntityNames() []string {
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
