package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sift/internal/schema"
)

// Load error codes, shared by every command that reads schema files.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// LoadError represents an error that occurred before compilation started.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Source is a built CUE value and the files it came from.
type Source struct {
	Value cue.Value
	Files []string
}

// LoadPath builds the CUE package at path. path is either a directory
// holding one package or a single .cue file.
func LoadPath(path string) (*Source, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema path: %v", err)}
	}

	var (
		files []string
		cfg   *load.Config
		args  []string
	)
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		cfg = &load.Config{Dir: path}
		args = []string{"."}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
		}
		files = []string{path}
		cfg = &load.Config{Dir: filepath.Dir(path)}
		args = []string{filepath.Base(path)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		le := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
		if ce, ok := formatCUEError("", err).(*CompileError); ok {
			le.Pos = ce.Pos
		}
		return nil, le
	}
	return &Source{Value: value, Files: files}, nil
}

// Load builds the schema files at path and compiles them into a registry.
func Load(path string) (*schema.Registry, []error) {
	src, err := LoadPath(path)
	if err != nil {
		return nil, []error{err}
	}
	return CompileSchemas(src.Value)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
