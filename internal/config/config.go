// Package config loads factlog settings from factlog.yaml, FACTLOG_*
// environment variables and command-line overrides, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendXML      = "xml"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const (
	configFileName = "factlog"
	configFileType = "yaml"
	envPrefix      = "FACTLOG"

	keyBackend      = "backend"
	keyDataDir      = "data_dir"
	keyPostgresDSN  = "postgres.dsn"
	keyAuthRequired = "auth.required"
	keyLogLevel     = "log.level"

	defaultBackend  = BackendXML
	defaultDataDir  = "data"
	defaultLogLevel = "info"
)

// Config is the resolved configuration.
type Config struct {
	Backend  string         `mapstructure:"backend" validate:"required,oneof=xml sqlite postgres"`
	DataDir  string         `mapstructure:"data_dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// PostgresConfig holds the PostgreSQL connection settings.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AuthConfig controls the admin check on mutating commands.
type AuthConfig struct {
	Required bool `mapstructure:"required"`
}

// LogConfig controls diagnostics written to stderr.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Options are the inputs to Load. Empty override fields are ignored.
type Options struct {
	// File is an explicit config file path. When empty, factlog.yaml is
	// searched for in SearchPaths (default: the working directory) and a
	// missing file is not an error.
	File        string
	SearchPaths []string

	Backend     string
	DataDir     string
	PostgresDSN string
}

// Load resolves the configuration and validates it.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyBackend, defaultBackend)
	v.SetDefault(keyDataDir, defaultDataDir)
	v.SetDefault(keyPostgresDSN, "")
	v.SetDefault(keyAuthRequired, true)
	v.SetDefault(keyLogLevel, defaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = []string{"."}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if opts.Backend != "" {
		v.Set(keyBackend, opts.Backend)
	}
	if opts.DataDir != "" {
		v.Set(keyDataDir, opts.DataDir)
	}
	if opts.PostgresDSN != "" {
		v.Set(keyPostgresDSN, opts.PostgresDSN)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(backendSettings, Config{})
	return val
}

// backendSettings checks the fields each backend needs.
func backendSettings(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	switch cfg.Backend {
	case BackendXML, BackendSQLite:
		if strings.TrimSpace(cfg.DataDir) == "" {
			sl.ReportError(cfg.DataDir, "DataDir", "data_dir", "required_for_backend", cfg.Backend)
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Postgres.DSN) == "" {
			sl.ReportError(cfg.Postgres.DSN, "Postgres.DSN", "dsn", "required_for_backend", cfg.Backend)
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
