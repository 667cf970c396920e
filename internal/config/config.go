package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for rcpt, stored in rcpt.yaml.
// Every key can be overridden with an RCPT_ environment variable, e.g.
// RCPT_SERVER_PORT or RCPT_DATA_DIR.
type Config struct {
	// DataDir holds the monthly CSV files.
	DataDir   string          `mapstructure:"data_dir"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Reception ReceptionConfig `mapstructure:"reception"`
}

// ServerConfig holds HTTP settings for `rcpt serve`.
type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// LogConfig selects zap's level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig tunes the record store.
type StorageConfig struct {
	// AtomicWrites rewrites files through a temp file and rename instead of
	// truncating in place.
	AtomicWrites bool `mapstructure:"atomic_writes"`
}

// ReceptionConfig holds desk-level settings.
type ReceptionConfig struct {
	// Timezone is the IANA zone used to pick the monthly file. Empty = local.
	Timezone string `mapstructure:"timezone"`
}

const (
	// DefaultPath is used when no --config flag is given.
	DefaultPath = "rcpt.yaml"
	// DefaultDataDir is relative to the working directory.
	DefaultDataDir = "data"
	// DefaultPort matches the port the desk terminals were set up with.
	DefaultPort = 5000
	EnvPrefix   = "RCPT"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		DataDir: DefaultDataDir,
		Server: ServerConfig{
			Port:               DefaultPort,
			CorsAllowedOrigins: []string{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// configTemplate is the annotated config written on first run.
const configTemplate = `# rcpt configuration
#
# All settings are optional; the defaults below work for a single desk.
# Any key can be overridden from the environment (or a .env file) with the
# RCPT_ prefix, dots replaced by underscores, e.g. RCPT_SERVER_PORT=8080.

# Directory holding one CSV file per month (2025_09.csv, ...).
data_dir: data

server:
  # HTTP port for "rcpt serve".
  port: 5000
  # Origins allowed to call the HTTP endpoints from a browser on another host.
  cors_allowed_origins: []

log:
  # debug, info, warn or error.
  level: info
  # console or json.
  format: console

storage:
  # Write full-file rewrites to a temp file and rename it into place.
  # Off by default: rewrites truncate the file in place.
  atomic_writes: false

reception:
  # IANA timezone used to pick the current month, e.g. "America/Sao_Paulo".
  # Leave empty to use the machine's local zone.
  timezone: ""
`

// Load reads the config file at path (DefaultPath when empty), creating it
// with annotated defaults on first run. A .env file in the working directory
// and RCPT_ environment variables override file values.
func Load(path string) (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.cors_allowed_origins", def.Server.CorsAllowedOrigins)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("storage.atomic_writes", false)
	v.SetDefault("reception.timezone", "")

	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return def, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return def, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return def, fmt.Errorf("decoding config: %w", err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Reception.Timezone; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Reception.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Reception.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reception.timezone %q: %w", c.Reception.Timezone, err)
	}
	return loc, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
