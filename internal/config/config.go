// Package config loads service configuration from an optional file,
// ENGAGEMENT_* environment variables and built-in defaults, in
// increasing order of precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qaforum/engagement/internal/engagement"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/ranking"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ENGAGEMENT_LOG_LEVEL
const EnvPrefix = "ENGAGEMENT"

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr joins host and port
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type TrendingConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type WeightsConfig struct {
	DecayHours float64            `mapstructure:"decay_hours"`
	Weights    map[string]float64 `mapstructure:"weights"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Config is the full service configuration
type Config struct {
	Environment       string          `mapstructure:"environment"`
	Log               LogConfig       `mapstructure:"log"`
	Database          DatabaseConfig  `mapstructure:"database"`
	Redis             RedisConfig     `mapstructure:"redis"`
	Trending          TrendingConfig  `mapstructure:"trending"`
	Scoring           WeightsConfig   `mapstructure:"scoring"`
	Ranking           WeightsConfig   `mapstructure:"ranking"`
	Workers           int             `mapstructure:"workers"`
	StoreTimeout      time.Duration   `mapstructure:"store_timeout"`
	// ReconcileInterval is how often serve checks the live scores against
	// the log; 0 disables the check
	ReconcileInterval time.Duration   `mapstructure:"reconcile_interval"`
	HTTP              HTTPConfig      `mapstructure:"http"`
	Telemetry         TelemetryConfig `mapstructure:"telemetry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "engagement.log")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "engagement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "engagement:")

	v.SetDefault("trending.cache_ttl", "60s")

	v.SetDefault("scoring.decay_hours", engagement.DefaultDecayHours)
	v.SetDefault("ranking.decay_hours", ranking.DefaultDecayHours)

	v.SetDefault("workers", 8)
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("reconcile_interval", "15m")

	v.SetDefault("http.addr", ":8787")
	v.SetDefault("http.cors_origins", []string{"*"})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

// Load reads configuration. An empty path searches ./engagement.* and
// /etc/engagement/engagement.*; a missing file is not an error then. An
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("engagement")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/engagement")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return apperrors.Configuration("database.driver", fmt.Sprintf("unsupported driver %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		return apperrors.Configuration("database.url", "must be set")
	}
	if c.Scoring.DecayHours <= 0 {
		return apperrors.Configuration("scoring.decay_hours", "must be positive")
	}
	if c.Ranking.DecayHours <= 0 {
		return apperrors.Configuration("ranking.decay_hours", "must be positive")
	}
	if c.Workers <= 0 {
		return apperrors.Configuration("workers", "must be positive")
	}
	if c.StoreTimeout <= 0 {
		return apperrors.Configuration("store_timeout", "must be positive")
	}
	if c.ReconcileInterval < 0 {
		return apperrors.Configuration("reconcile_interval", "must not be negative")
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return apperrors.Configuration("telemetry.sampling_rate", "must be within [0, 1]")
	}
	if _, err := c.ScoreWeights(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ScoreWeights builds the aggregator weight table. An unset table keeps
// the defaults; a configured one replaces them wholesale. Types outside
// the taxonomy are allowed and weigh what they are configured to.
func (c *Config) ScoreWeights() (engagement.Weights, error) {
	if len(c.Scoring.Weights) == 0 {
		return engagement.DefaultScoreWeights(), nil
	}

	names := make([]string, 0, len(c.Scoring.Weights))
	for name := range c.Scoring.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	table := make(map[models.EventType]float64, len(names))
	for _, name := range names {
		t := models.EventType(strings.TrimSpace(name))
		if t == "" {
			return engagement.Weights{}, apperrors.Configuration("scoring.weights", "event type name is empty")
		}
		table[t] = c.Scoring.Weights[name]
	}
	return engagement.NewWeights(table), nil
}

// RankingConfig builds the ranking engine configuration. An unset table
// keeps the default weights.
func (c *Config) RankingConfig() ranking.Config {
	cfg := ranking.Config{DecayHours: c.Ranking.DecayHours}
	if len(c.Ranking.Weights) > 0 {
		cfg.Weights = c.Ranking.Weights
	}
	return cfg
}
