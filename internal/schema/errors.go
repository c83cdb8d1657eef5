package schema

import (
	"fmt"
	"strings"
)

// Declaration error codes (E200-E299)
const (
	ErrUnknownOperator   = "E201" // operator suffix not in the registry
	ErrUnknownAttribute  = "E202" // base name is not an entity attribute
	ErrDuplicateName     = "E203" // field or attribute declared twice
	ErrSearchNotDeclared = "E204" // search field without searchable fields
	ErrInvalidSearchable = "E205" // searchable field is not a string attribute
	ErrOperatorType      = "E206" // field type does not fit the operator
	ErrInvalidDefault    = "E207" // default cannot be coerced or names bad ordering
	ErrInvalidNested     = "E208" // nested field misdeclared
	ErrInvalidIdentifier = "E209" // name, table or column is not an identifier
	ErrMissingEntity     = "E210" // definition has no entity
	ErrInvalidType       = "E211" // unknown type name
)

// DeclarationError reports a schema that cannot be declared.
type DeclarationError struct {
	Schema  string `json:"schema"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e DeclarationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Schema, e.Message)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Schema, e.Field, e.Message)
}

// DeclarationErrors collects every problem found in one declaration.
type DeclarationErrors []DeclarationError

// Error implements the error interface.
func (errs DeclarationErrors) Error() string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (errs DeclarationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// HasCode reports whether any collected error carries code.
func (errs DeclarationErrors) HasCode(code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

// collector accumulates declaration errors for one schema.
type collector struct {
	schema string
	errs   DeclarationErrors
}

func (c *collector) add(field, code, format string, args ...any) {
	c.errs = append(c.errs, DeclarationError{
		Schema:  c.schema,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}
