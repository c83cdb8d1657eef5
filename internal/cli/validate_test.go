package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sift/internal/schema"
)

func TestValidate_ValidSchemas(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", blogSchemas)
	require.NoError(t, err)
	assert.Equal(t, "✓ All schemas valid (2 filters, 2 entities)\n", out)
}

func TestValidate_ValidSchemasJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "json", blogSchemas)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"PostFilter", "UserFilter"}, result.Filters)
	assert.Equal(t, []string{"posts", "users"}, result.Entities)
	assert.Empty(t, result.Errors)
}

func TestValidate_DeclarationErrors(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", brokenSchemas)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, schema.ErrUnknownOperator)
	assert.Contains(t, out, schema.ErrUnknownAttribute)
	assert.Contains(t, out, "schemas.cue:")
}

func TestValidate_DeclarationErrorsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "json", brokenSchemas)
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, schema.ErrUnknownOperator, resp.Error.Code)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "schemas.cue", filepath.Base(result.Errors[0].File))
	assert.Positive(t, result.Errors[0].Line)
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing path", "/nonexistent/directory/path", "E005"},
		{"empty directory", t.TempDir(), "E003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand, "text", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidate_RequiresPath(t *testing.T) {
	_, err := execute(t, NewValidateCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
