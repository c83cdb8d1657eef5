package transport

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
)

// Option configures Bind.
type Option func(*bindOptions)

type bindOptions struct {
	ignoreUnknown bool
}

// IgnoreUnknown drops undeclared parameters instead of rejecting them.
func IgnoreUnknown() Option {
	return func(o *bindOptions) { o.ignoreUnknown = true }
}

// Request is a bound set of wire parameters.
type Request struct {
	shadow *Shadow
	values map[string]string
}

// Bind checks values against the shadow and returns a Request.
//
// Repeated values of a list parameter are joined with commas; a scalar
// parameter takes its last value. Absent parameters with a default are
// filled in and count as supplied. Values that do not parse as their wire
// type, and undeclared parameters unless IgnoreUnknown is given, fail with
// a *RequestError.
func (s *Shadow) Bind(values url.Values, opts ...Option) (*Request, error) {
	var o bindOptions
	for _, opt := range opts {
		opt(&o)
	}

	bound := make(map[string]string, len(values))
	var errs []filter.FieldError
	for _, p := range s.params {
		vals, ok := values[p.Name]
		if !ok || len(vals) == 0 {
			if p.Default != nil {
				bound[p.Name] = *p.Default
			}
			continue
		}
		text := vals[len(vals)-1]
		if p.list {
			text = strings.Join(vals, ",")
		}
		v, err := ir.Coerce(p.Type, text)
		if err != nil {
			errs = append(errs, filter.FieldError{Kind: filter.KindTypeCoercion, Field: p.Name, Message: err.Error()})
			continue
		}
		bound[p.Name] = v.String()
	}

	for _, key := range slices.Sorted(maps.Keys(values)) {
		if _, ok := s.byName[key]; ok {
			continue
		}
		if o.ignoreUnknown {
			continue
		}
		if vals := values[key]; len(vals) > 0 {
			bound[key] = vals[len(vals)-1]
		}
		errs = append(errs, filter.FieldError{Kind: filter.KindUnknownField, Field: key, Message: "unknown field"})
	}

	if len(errs) > 0 {
		return nil, &RequestError{Report: &filter.ValidationError{
			Schema: s.def.Name(),
			Stage:  filter.StageCoercion,
			Errors: errs,
		}}
	}
	return &Request{shadow: s, values: bound}, nil
}

// Values returns the bound parameters in wire form.
func (r *Request) Values() map[string]string {
	return maps.Clone(r.values)
}

// Instance re-validates the bound parameters against the canonical
// definition.
func (r *Request) Instance() (*filter.Instance, error) {
	raw := make(map[string]any, len(r.values))
	for k, v := range r.values {
		raw[k] = v
	}
	in, err := filter.Validate(r.shadow.def, raw)
	if err != nil {
		if ve, ok := filter.AsValidationError(err); ok {
			return nil, &RequestError{Report: ve}
		}
		return nil, err
	}
	return in, nil
}

// Filter re-validates and folds the filtering predicates into q.
func (r *Request) Filter(q queryir.Query) (queryir.Query, error) {
	in, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return in.Filter(q)
}

// Sort re-validates and appends the requested ordering to q.
func (r *Request) Sort(q queryir.Query) (queryir.Query, error) {
	in, err := r.Instance()
	if err != nil {
		return nil, err
	}
	return in.Sort(q)
}

// Apply re-validates once, then folds the filtering predicates and, when
// the definition declares an ordering field, the ordering into q.
func (r *Request) Apply(q queryir.Query) (queryir.Query, error) {
	in, err := r.Instance()
	if err != nil {
		return nil, err
	}
	if q, err = in.Filter(q); err != nil {
		return nil, err
	}
	if _, ok := r.shadow.def.Ordering(); !ok {
		return q, nil
	}
	return in.Sort(q)
}
