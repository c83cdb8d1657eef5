package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/sift/internal/compiler"
	"github.com/roach88/sift/internal/schema"
)

// Error codes used by commands in addition to the loader's E00x codes.
const (
	ErrCodeGeneric       = compiler.ErrCodeGeneric
	ErrCodeSchema        = "E200" // Structural schema file error without a declaration code
	ErrCodeUnknownFilter = "E301" // Named filter is not registered
	ErrCodeBadQuery      = "E302" // Query string does not parse
	ErrCodeRejected      = "E303" // Query rejected by validation
	ErrCodeConfig        = "E401" // Configuration could not be loaded
	ErrCodeDatabase      = "E402" // Database could not be opened
)

// Diagnostic is one schema problem as reported by commands.
type Diagnostic struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// text renders the diagnostic without its code, for use as an error
// message next to it.
func (d Diagnostic) text() string {
	msg := d.Message
	if d.Field != "" {
		msg = d.Field + ": " + msg
	}
	if d.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, msg)
	}
	return msg
}

// toDiagnostic converts a loader or compiler error.
func toDiagnostic(err error) Diagnostic {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		d := Diagnostic{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			d.File, d.Line, d.Column = loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column()
		}
		return d
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		d := Diagnostic{Code: compileErr.Code, Field: compileErr.Field, Message: compileErr.Message}
		if d.Code == "" {
			d.Code = ErrCodeSchema
		}
		if compileErr.Pos.IsValid() {
			d.File, d.Line, d.Column = compileErr.Pos.Filename(), compileErr.Pos.Line(), compileErr.Pos.Column()
		}
		return d
	}
	return Diagnostic{Code: ErrCodeGeneric, Message: err.Error()}
}

// loadRegistry loads and compiles the schema files at path.
//
// loadFailed is true when nothing could be compiled at all (missing path,
// unreadable CUE); otherwise diags lists declaration problems and the
// registry holds whatever compiled cleanly.
func loadRegistry(path string) (reg *schema.Registry, diags []Diagnostic, loadFailed bool) {
	reg, errs := compiler.Load(path)
	for _, err := range errs {
		diags = append(diags, toDiagnostic(err))
	}
	return reg, diags, reg == nil
}

// mustLoadRegistry is loadRegistry for commands that need every schema to
// compile. Problems are reported through f and returned as an ExitError.
func mustLoadRegistry(f *OutputFormatter, path string) (*schema.Registry, error) {
	reg, diags, _ := loadRegistry(path)
	if len(diags) > 0 {
		first := diags[0]
		_ = f.Error(first.Code, first.text(), diags)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("failed to load schemas from %s", path))
	}
	f.VerboseLog("Loaded %d filter(s) from %s", len(reg.Names()), path)
	return reg, nil
}

// lookupFilter fetches name from reg, reporting an unknown name through f.
func lookupFilter(f *OutputFormatter, reg *schema.Registry, name string) (*schema.Definition, error) {
	def, ok := reg.Get(name)
	if !ok {
		msg := fmt.Sprintf("unknown filter %q (registered: %v)", name, reg.Names())
		_ = f.Error(ErrCodeUnknownFilter, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	return def, nil
}
