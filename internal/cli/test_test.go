package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioTemplate = `name: %s
description: "Adults ordered by age"
schemas: %s
setup:
  - |
    CREATE TABLE users (
      id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT,
      age INTEGER NOT NULL, active BOOLEAN NOT NULL, created_at TIMESTAMP NOT NULL
    );
    INSERT INTO users VALUES
      (1, 'Alice', 'alice@example.com', 30, TRUE, '2024-01-01 00:00:00+00:00'),
      (2, 'Bob', 'bob@example.com', 17, TRUE, '2024-02-01 00:00:00+00:00');
cases:
  - name: adults
    filter: UserFilter
    query: "age__gte=18"
    expect:
      keys: [%s]
`

// writeTestScenario writes a scenario expecting keys into dir.
func writeTestScenario(t *testing.T, dir, name, keys string) string {
	t.Helper()
	schemas, err := filepath.Abs(blogSchemas)
	require.NoError(t, err)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(scenarioTemplate, name, schemas, keys)), 0644))
	return path
}

func TestTestCommand_Scenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ blog_filters")
	assert.Contains(t, out, "✓ user_search")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_FilterAndJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand, "json", scenariosDir, "--filter", "user*")
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "user_search", result.Scenarios[0].Name)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Positive(t, result.Scenarios[0].Cases)
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeTestScenario(t, dir, "wrong_keys", "2")

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_keys")
	assert.Contains(t, out, `case "adults": keys: expected [2], got [1]`)
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_Golden(t *testing.T) {
	dir := t.TempDir()
	path := writeTestScenario(t, dir, "adults", "1")
	golden := filepath.Join(dir, "golden", "adults.golden")

	out, err := execute(t, NewTestCommand, "text", path, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adults (golden updated)")
	require.FileExists(t, golden)

	// The golden directory is not itself searched for scenarios.
	_, err = execute(t, NewTestCommand, "text", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"cases":[]}`), 0644))
	out, err = execute(t, NewTestCommand, "text", path)
	require.Error(t, err)
	assert.Contains(t, out, "result does not match golden file")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0644))

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_CommandErrors(t *testing.T) {
	_, err := execute(t, NewTestCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")

	_, err = execute(t, NewTestCommand, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	out, err = execute(t, NewTestCommand, "json", t.TempDir())
	require.NoError(t, err)
	var result TestResult
	decodeResponse(t, out, &result)
	assert.Zero(t, result.Total)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "notes.txt", "sub/c.yaml", "golden/a.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"a.yaml", "b.yml", "sub/c.yaml"}},
		{"a*", []string{"a.yaml"}},
		{"c", []string{"sub/c.yaml"}},
	}

	for _, tt := range tests {
		t.Run("filter="+tt.filter, func(t *testing.T) {
			files, err := findScenarioFiles(dir, tt.filter)
			require.NoError(t, err)
			var rel []string
			for _, f := range files {
				r, err := filepath.Rel(dir, f)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
		})
	}

	_, err := findScenarioFiles(dir, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "blog.golden"),
		goldenFilePath(filepath.Join("scenarios", "blog.yaml")))
}
