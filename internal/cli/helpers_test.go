package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	blogSchemas   = filepath.Join("..", "..", "testdata", "schemas", "blog")
	brokenSchemas = filepath.Join("..", "..", "testdata", "schemas", "broken")
	scenariosDir  = filepath.Join("..", "harness", "testdata", "scenarios")
)

// execute runs the command built by newCmd with args and returns stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse decodes a json CLIResponse and re-decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	if v != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	return resp
}
