package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLevelDB  = "leveldb"
	DriverMemory   = "memory"
)

// Export sinks
const (
	SinkFile = "file"
	SinkS3   = "s3"
)

// CurrentVersion is written by SaveConfig.
const CurrentVersion = "1"

// Config represents the lifebank CLI configuration
type Config struct {
	Version string       `yaml:"version"`
	Actor   string       `yaml:"actor,omitempty"` // principal used when --as is not given
	Store   StoreConfig  `yaml:"store"`
	Log     LogConfig    `yaml:"log"`
	Export  ExportConfig `yaml:"export"`
}

// StoreConfig selects and locates the request store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // sqlite file or leveldb directory; empty means ~/.lifebank default
	DSN    string `yaml:"dsn,omitempty"`  // postgres only
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// ExportConfig selects where snapshots go.
type ExportConfig struct {
	Sink string   `yaml:"sink"`
	Dir  string   `yaml:"dir,omitempty"`
	S3   S3Config `yaml:"s3,omitempty"`
}

// S3Config locates the snapshot bucket. Credentials come from the AWS
// default chain.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Store:   StoreConfig{Driver: DriverSQLite},
		Log:     LogConfig{Level: "info", Format: "console"},
		Export:  ExportConfig{Sink: SinkFile, Dir: "exports"},
	}
}

// Path returns the config file location under dir.
func Path(dir string) string {
	return filepath.Join(dir, ".lifebank", "config.yaml")
}

// LoadConfig reads .lifebank/config.yaml from the specified directory.
// Fields the file omits keep their defaults.
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Load resolves the effective configuration: defaults, then the file in dir
// when present, then LIFEBANK_* environment overrides.
func Load(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.yaml to directory
func SaveConfig(dir string, cfg *Config) error {
	lifebankDir := filepath.Dir(Path(dir))
	if err := os.MkdirAll(lifebankDir, 0755); err != nil {
		return fmt.Errorf("failed to create .lifebank dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from LIFEBANK_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"LIFEBANK_ACTOR", &c.Actor},
		{"LIFEBANK_STORE_DRIVER", &c.Store.Driver},
		{"LIFEBANK_STORE_PATH", &c.Store.Path},
		{"LIFEBANK_STORE_DSN", &c.Store.DSN},
		{"LIFEBANK_LOG_LEVEL", &c.Log.Level},
		{"LIFEBANK_LOG_FORMAT", &c.Log.Format},
		{"LIFEBANK_EXPORT_SINK", &c.Export.Sink},
		{"LIFEBANK_EXPORT_DIR", &c.Export.Dir},
		{"LIFEBANK_EXPORT_S3_BUCKET", &c.Export.S3.Bucket},
		{"LIFEBANK_EXPORT_S3_PREFIX", &c.Export.S3.Prefix},
		{"LIFEBANK_EXPORT_S3_REGION", &c.Export.S3.Region},
		{"LIFEBANK_EXPORT_S3_ENDPOINT", &c.Export.S3.Endpoint},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup("LIFEBANK_EXPORT_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LIFEBANK_EXPORT_S3_PATH_STYLE %q: %w", v, err)
		}
		c.Export.S3.PathStyle = b
	}
	return nil
}

// Validate rejects settings no adapter can serve.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverLevelDB, DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, postgres, leveldb or memory)", c.Store.Driver)
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.Log.Format)
	}

	switch c.Export.Sink {
	case SinkFile:
	case SinkS3:
		if c.Export.S3.Bucket == "" {
			return fmt.Errorf("export.s3.bucket is required for the s3 sink")
		}
	default:
		return fmt.Errorf("unknown export sink %q (want file or s3)", c.Export.Sink)
	}
	return nil
}

// DefaultDataDir returns ~/.lifebank.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".lifebank"), nil
}
