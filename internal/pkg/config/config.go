package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// OracleConfig configures the road-routing oracle client.
type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SnapBatchSize  int    `mapstructure:"snap_batch_size"`
	SnapBatchDelay int    `mapstructure:"snap_batch_delay_ms"`
	SnapCacheSize  int    `mapstructure:"snap_cache_size"`
}

// SynthesisConfig exposes the engine's tuning constants. The defaults come
// straight from field behavior; they are heuristics, not derived optima.
type SynthesisConfig struct {
	MinPoints          int     `mapstructure:"min_points"`
	MaxPoints          int     `mapstructure:"max_points"`
	HighwayPenaltyMin  float64 `mapstructure:"highway_penalty_min"`
	LoopTolerancePct   float64 `mapstructure:"loop_tolerance_pct"`
	BacktrackBandDeg   float64 `mapstructure:"backtrack_band_deg"`
	DuplicateEpsilon   float64 `mapstructure:"duplicate_epsilon"`
	EdgeDelayMs        int     `mapstructure:"edge_delay_ms"`
	MaxSegmentFailures int     `mapstructure:"max_segment_failures"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "routesketch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "routesketch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("oracle.base_url", "https://router.project-osrm.org")
	v.SetDefault("oracle.timeout_seconds", 10)
	v.SetDefault("oracle.snap_batch_size", 10)
	v.SetDefault("oracle.snap_batch_delay_ms", 100)
	v.SetDefault("oracle.snap_cache_size", 4096)
	v.SetDefault("synthesis.min_points", 4)
	v.SetDefault("synthesis.max_points", 25)
	v.SetDefault("synthesis.highway_penalty_min", 0.2)
	v.SetDefault("synthesis.loop_tolerance_pct", 0.05)
	v.SetDefault("synthesis.backtrack_band_deg", 20)
	v.SetDefault("synthesis.duplicate_epsilon", 1e-5)
	v.SetDefault("synthesis.edge_delay_ms", 150)
	v.SetDefault("synthesis.max_segment_failures", 3)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROUTESKETCH_ORACLE_BASE_URL → oracle.base_url
	v.SetEnvPrefix("ROUTESKETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Oracle.BaseURL == "" {
		errs = append(errs, "oracle.base_url is required")
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		errs = append(errs, "oracle.timeout_seconds must be positive")
	}
	if c.Oracle.SnapBatchSize <= 0 {
		errs = append(errs, "oracle.snap_batch_size must be positive")
	}
	if c.Oracle.SnapCacheSize <= 0 {
		errs = append(errs, "oracle.snap_cache_size must be positive")
	}
	if c.Synthesis.MinPoints < 2 {
		errs = append(errs, "synthesis.min_points must be at least 2")
	}
	if c.Synthesis.MaxPoints < c.Synthesis.MinPoints {
		errs = append(errs, "synthesis.max_points must be >= synthesis.min_points")
	}
	if c.Synthesis.HighwayPenaltyMin <= 0 || c.Synthesis.HighwayPenaltyMin > 1 {
		errs = append(errs, "synthesis.highway_penalty_min must be in (0, 1]")
	}
	if c.Synthesis.MaxSegmentFailures <= 0 {
		errs = append(errs, "synthesis.max_segment_failures must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
