package compiler

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sift/internal/schema"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string // Dotted path, e.g. "filter.UserFilter.fields.age__gt"
	Message string
	Code    string // Declaration code (E2xx) when the schema package rejected it
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = "[" + e.Code + "] " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(field string, err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: field, Message: err.Error(), Err: err}
	}

	// Return first error with position info
	first := errs[0]
	ce := &CompileError{Field: field, Message: first.Error(), Err: err}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// Errors is a list of compile errors reported together.
type Errors []*CompileError

func (errs Errors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func (errs Errors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// declarationErrors positions the schema package's declaration errors at
// the CUE value of the offending field, falling back to pos.
func declarationErrors(path string, err error, lookup func(field string) cue.Value, pos token.Pos) error {
	var decl schema.DeclarationErrors
	if !stderrors.As(err, &decl) {
		return &CompileError{Field: path, Message: err.Error(), Pos: pos, Err: err}
	}
	out := make(Errors, 0, len(decl))
	for _, de := range decl {
		ce := &CompileError{Field: path, Message: de.Message, Code: de.Code, Pos: pos, Err: de}
		if de.Field != "" {
			ce.Field = path + "." + de.Field
			if fv := lookup(de.Field); fv.Exists() {
				ce.Pos = fv.Pos()
			}
		}
		out = append(out, ce)
	}
	return out
}
