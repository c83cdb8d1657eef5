package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
)

// Config represents the sift configuration from sift.yaml.
type Config struct {
	SchemasDir string `mapstructure:"schemas_dir"`

	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 | postgres
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig holds HTTP endpoint settings.
type ServerConfig struct {
	Addr                string        `mapstructure:"addr"`
	IgnoreUnknownParams bool          `mapstructure:"ignore_unknown_params"`
	MaxRows             int           `mapstructure:"max_rows"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // text | json
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}
	return loadConfigFrom(explicitConfigPath, cwd)
}

func loadConfigFrom(explicitConfigPath, startDir string) (*Config, string, error) {
	v := viper.New()

	// 1. Defaults (lowest precedence)
	setDefaults(v)

	// 2. Environment, e.g. SIFT_DATABASE_DSN for database.dsn
	v.SetEnvPrefix("SIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Config file
	configPath, err := findConfigFile(explicitConfigPath, startDir)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Relative paths in a config file are relative to that file.
	if configPath != "" && cfg.SchemasDir != "" && !filepath.IsAbs(cfg.SchemasDir) && v.InConfig("schemas_dir") {
		cfg.SchemasDir = filepath.Join(filepath.Dir(configPath), cfg.SchemasDir)
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schemas_dir", "schemas")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "sift.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.ignore_unknown_params", false)
	v.SetDefault("server.max_rows", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from startDir looking for sift.yaml or sift.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath, startDir string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	dir := startDir
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"sift.yaml", "sift.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repo root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// NewLogger builds the process logger from the log settings. verbose
// forces debug level.
func (c LogConfig) NewLogger(w io.Writer, verbose bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.Level)
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", c.Format)
	}
}
