package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindUnknownField      ErrorKind = "unknown_field"
	KindTypeCoercion      ErrorKind = "type_coercion_failed"
	KindMissingField      ErrorKind = "missing_field"
	KindInvalidOrdering   ErrorKind = "invalid_ordering_field"
	KindDuplicateOrdering ErrorKind = "duplicate_ordering_field"
)

// Stage tells which validation pass produced an error.
type Stage string

const (
	StageCoercion Stage = "coercion" // structural and per-field type checks
	StageSemantic Stage = "semantic" // ordering checks against the entity
)

// Configuration errors. These mean the schema is used in a way it was not
// declared for; they are never caused by request data.
var (
	ErrNoOrderingField     = errors.New("schema declares no ordering field")
	ErrSearchNotConfigured = errors.New("search requested but no searchable fields are configured")
)

// FieldError is one entry of a validation report.
type FieldError struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field"`
	Names   []string  `json:"names,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every failure of one validation pass.
type ValidationError struct {
	Schema string       `json:"schema"`
	Stage  Stage        `json:"stage"`
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%s: %d validation %s: %s", e.Schema, len(e.Errors), noun, strings.Join(parts, "; "))
}

// Has reports whether the report contains an error of kind.
func (e *ValidationError) Has(kind ErrorKind) bool {
	return len(e.ByKind(kind)) > 0
}

// ByKind returns the errors of kind, in report order.
func (e *ValidationError) ByKind(kind ErrorKind) []FieldError {
	var out []FieldError
	for _, fe := range e.Errors {
		if fe.Kind == kind {
			out = append(out, fe)
		}
	}
	return out
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
