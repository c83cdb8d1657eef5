// Package transport adapts filter definitions to query-string transports.
//
// A Shadow is the string-leaning wire form of a definition: list fields
// travel as one comma-separated string and defaults are pre-filled. Bound
// requests are re-validated against the canonical definition before they
// compile, and client-caused failures surface as *RequestError.
package transport

import (
	"slices"
	"sync"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/schema"
)

// Param documents one wire parameter.
type Param struct {
	Name        string  `json:"name"`
	Type        ir.Type `json:"type"`
	Required    bool    `json:"required"`
	Default     *string `json:"default,omitempty"`
	Description string  `json:"description,omitempty"`
	Schema      string  `json:"schema"` // Declaring definition

	list bool
}

// Shadow is the transport-level definition derived from a canonical one.
type Shadow struct {
	def    *schema.Definition
	params []Param
	byName map[string]int
}

var shadows sync.Map // *schema.Definition -> *Shadow

// ShadowOf returns the shadow of def, deriving it on first use.
//
// Derivation is deterministic, so goroutines racing on first use may each
// derive one; only the first stored is ever returned.
func ShadowOf(def *schema.Definition) *Shadow {
	if s, ok := shadows.Load(def); ok {
		return s.(*Shadow)
	}
	s, _ := shadows.LoadOrStore(def, derive(def))
	return s.(*Shadow)
}

func derive(def *schema.Definition) *Shadow {
	s := &Shadow{def: def, byName: make(map[string]int)}
	s.collect(def)
	return s
}

// collect flattens def's fields, descending into nested schemas.
func (s *Shadow) collect(def *schema.Definition) {
	for _, f := range def.Fields() {
		if f.Role() == schema.RoleNested {
			s.collect(f.Nested())
			continue
		}
		p := Param{
			Name:        def.ExternalName(f.Name()),
			Type:        f.Type(),
			Required:    f.Required(),
			Description: f.Description(),
			Schema:      def.Name(),
			list:        f.List(),
		}
		if p.list {
			p.Type = ir.TypeString
		}
		if v, ok := f.Default(); ok {
			text := v.String()
			p.Default = &text
		}
		s.byName[p.Name] = len(s.params)
		s.params = append(s.params, p)
	}
}

// Definition returns the canonical definition the shadow was derived from.
func (s *Shadow) Definition() *schema.Definition { return s.def }

// Params lists the wire parameters in declaration order.
func (s *Shadow) Params() []Param { return slices.Clone(s.params) }

// Param looks up a wire parameter by name.
func (s *Shadow) Param(name string) (Param, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}
