// Package config holds the module's ambient configuration: the YAML shape
// inherited from the teacher's `goinmonster.yaml`, overlaid by GOINMONSTER_*
// environment variables, then validated before anything else starts.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the merged, validated configuration for a running instance.
// The teacher's original config additionally carried Schema/Output/Models/
// Fields/Relations/Scalars/Resolver sections steering its authored-.graphqls
// codegen step; this system has no authored schema for generate or serve to
// read; both introspect the database live, so only Database/Server/Chunk/
// Logging/Auth remain.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Chunk    ChunkConfig    `yaml:"chunk"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
}

// DatabaseConfig now carries connection settings rather than just a dialect
// name; Dialect still selects the sql/dialect.Dialect implementation.
type DatabaseConfig struct {
	Dialect      string `yaml:"dialect" validate:"required,oneof=postgresql sqlserver"`
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

type ServerConfig struct {
	ListenAddr     string `yaml:"listenAddr"`
	RequestTimeout int    `yaml:"requestTimeoutSeconds"`
}

type ChunkConfig struct {
	Threshold     int `yaml:"thresholdBytes"`
	Window        int `yaml:"window"`
	RetransmitTTL int `yaml:"retransmitTTLSeconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// AuthConfig configures the optional bearer-JWT AuthChecker (§7's
// "auth-required" hook). An empty Secret leaves the server unauthenticated,
// matching the teacher's original no-auth-at-all behavior; this module never
// invents a default signing secret.
type AuthConfig struct {
	Secret   string `yaml:"secret" validate:"omitempty,min=16"`
	Required bool   `yaml:"required"`
}

// envOverlay mirrors the DatabaseConfig/ServerConfig/LoggingConfig fields and
// AuthConfig.Secret (ChunkConfig has no environment override) that a
// deployment is expected to override at container runtime, via
// caarlos0/env tags. Shallow-merged over the YAML values: a non-empty/non-zero
// env value always wins.
type envOverlay struct {
	DatabaseDialect      string `env:"GOINMONSTER_DATABASE_DIALECT"`
	DatabaseDSN          string `env:"GOINMONSTER_DATABASE_DSN"`
	DatabaseMaxOpenConns int    `env:"GOINMONSTER_DATABASE_MAX_OPEN_CONNS"`
	DatabaseMaxIdleConns int    `env:"GOINMONSTER_DATABASE_MAX_IDLE_CONNS"`
	ServerListenAddr     string `env:"GOINMONSTER_SERVER_LISTEN_ADDR"`
	LoggingLevel         string `env:"GOINMONSTER_LOGGING_LEVEL"`
	LoggingFormat        string `env:"GOINMONSTER_LOGGING_FORMAT"`
	AuthSecret           string `env:"GOINMONSTER_AUTH_SECRET"`
}

// Load reads path as YAML, applies defaults, overlays GOINMONSTER_*
// environment variables, then validates the merged result. A validation
// failure is fatal at startup, matching the Schema Reader's
// fatal-on-partial-model contract: this module never runs on a config it
// isn't confident about.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg)

	var overlay envOverlay
	if err := env.Parse(&overlay); err != nil {
		return nil, fmt.Errorf("parsing environment overlay: %w", err)
	}
	mergeEnvOverlay(&cfg, overlay)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = "postgresql"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30
	}
	if cfg.Chunk.Threshold == 0 {
		cfg.Chunk.Threshold = 65536
	}
	if cfg.Chunk.Window == 0 {
		cfg.Chunk.Window = 8
	}
	if cfg.Chunk.RetransmitTTL == 0 {
		cfg.Chunk.RetransmitTTL = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func mergeEnvOverlay(cfg *Config, o envOverlay) {
	if o.DatabaseDialect != "" {
		cfg.Database.Dialect = o.DatabaseDialect
	}
	if o.DatabaseDSN != "" {
		cfg.Database.DSN = o.DatabaseDSN
	}
	if o.DatabaseMaxOpenConns != 0 {
		cfg.Database.MaxOpenConns = o.DatabaseMaxOpenConns
	}
	if o.DatabaseMaxIdleConns != 0 {
		cfg.Database.MaxIdleConns = o.DatabaseMaxIdleConns
	}
	if o.ServerListenAddr != "" {
		cfg.Server.ListenAddr = o.ServerListenAddr
	}
	if o.LoggingLevel != "" {
		cfg.Logging.Level = o.LoggingLevel
	}
	if o.LoggingFormat != "" {
		cfg.Logging.Format = o.LoggingFormat
	}
	if o.AuthSecret != "" {
		cfg.Auth.Secret = o.AuthSecret
	}
}
