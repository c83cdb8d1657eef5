package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sift/internal/server"
	"github.com/roach88/sift/internal/store"
	"github.com/roach88/sift/internal/testutil"
)

// seedDatabase creates a sqlite file holding the blog users table.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "sift.db")
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite3", dsn)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Exec(ctx, `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT,
			age INTEGER NOT NULL, active BOOLEAN NOT NULL, created_at TIMESTAMP NOT NULL
		);
		INSERT INTO users VALUES
			(1, 'Alice', 'alice@example.com', 30, TRUE, '2024-01-01 00:00:00+00:00'),
			(2, 'Bob', 'bob@example.com', 17, TRUE, '2024-02-01 00:00:00+00:00');
	`))
	return dsn
}

func TestServe_EndToEnd(t *testing.T) {
	dsn := seedDatabase(t)
	cfgPath := filepath.Join(t.TempDir(), "sift.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  shutdown_timeout: 2s\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrs := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: cfgPath},
		Addr:        "127.0.0.1:0",
		SchemasDir:  blogSchemas,
		DSN:         dsn,
		IDGenerator: testutil.NewFixedIDGenerator("req-serve"),
		ready:       func(addr string) { addrs <- addr },
	}
	cmd := NewServeCommand(opts.RootOptions)
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(logs)
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/filters/UserFilter/rows?age__gte=18")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-serve", resp.Header.Get(server.RequestIDHeader))

	var body server.RowsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Alice", body.Rows[0]["name"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Contains(t, out.String(), "Serving 2 filter(s) on "+addr)
	assert.Contains(t, logs.String(), "server stopped gracefully")
	assert.Contains(t, logs.String(), "request_id=req-serve")
}

func TestServe_StartupErrors(t *testing.T) {
	dsn := seedDatabase(t)

	tests := []struct {
		name string
		opts ServeOptions
		want string
	}{
		{"missing config", ServeOptions{RootOptions: &RootOptions{ConfigPath: "/nonexistent/sift.yaml"}}, "failed to load config"},
		{"broken schemas", ServeOptions{SchemasDir: brokenSchemas, DSN: dsn}, "failed to compile schemas"},
		{"bad driver", ServeOptions{SchemasDir: blogSchemas, Driver: "oracle", DSN: dsn}, "failed to open database"},
		{"bad address", ServeOptions{SchemasDir: blogSchemas, DSN: dsn, Addr: "not-an-address"}, "failed to listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if opts.RootOptions == nil {
				opts.RootOptions = &RootOptions{Format: "text"}
			}
			cmd := NewServeCommand(opts.RootOptions)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := runServe(&opts, cmd)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServeOptions_Override(t *testing.T) {
	cfg := &Config{SchemasDir: "schemas", Database: DatabaseConfig{Driver: "sqlite3", DSN: "a.db"}, Server: ServerConfig{Addr: ":8080"}}

	(&ServeOptions{}).override(cfg)
	assert.Equal(t, "schemas", cfg.SchemasDir)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	(&ServeOptions{Addr: ":1", SchemasDir: "x", Driver: "postgres", DSN: "b"}).override(cfg)
	assert.Equal(t, ":1", cfg.Server.Addr)
	assert.Equal(t, "x", cfg.SchemasDir)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "b", cfg.Database.DSN)
}
