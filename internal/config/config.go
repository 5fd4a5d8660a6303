package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Finalize  FinalizeConfig  `yaml:"finalize" mapstructure:"finalize"`
	Geo       GeoConfig       `yaml:"geo" mapstructure:"geo"`
	SQL       SQLConfig       `yaml:"sql" mapstructure:"sql"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds extraction oracle settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	RetryAttempts     int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	CacheTTL          string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ExtractConfig configures batching and pacing.
type ExtractConfig struct {
	BatchSize              int `yaml:"batch_size" mapstructure:"batch_size"`
	MinMessageLength       int `yaml:"min_message_length" mapstructure:"min_message_length"`
	RateLimitDelayMS       int `yaml:"rate_limit_delay_ms" mapstructure:"rate_limit_delay_ms"`
	FailureDelayMultiplier int `yaml:"failure_delay_multiplier" mapstructure:"failure_delay_multiplier"`
}

// PathsConfig locates pipeline inputs and outputs.
type PathsConfig struct {
	MessagesFile  string `yaml:"messages_file" mapstructure:"messages_file"`
	OutputDir     string `yaml:"output_dir" mapstructure:"output_dir"`
	LandmarksFile string `yaml:"landmarks_file" mapstructure:"landmarks_file"`
}

// FinalizeConfig holds ownership and locality defaults.
type FinalizeConfig struct {
	ProfileID    string `yaml:"profile_id" mapstructure:"profile_id"`
	CreatedBy    string `yaml:"created_by" mapstructure:"created_by"`
	CityID       string `yaml:"city_id" mapstructure:"city_id"`
	LocalityName string `yaml:"locality_name" mapstructure:"locality_name"`
}

// GeoConfig configures coordinate resolution.
type GeoConfig struct {
	DefaultLat float64   `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLng float64   `yaml:"default_lng" mapstructure:"default_lng"`
	BBox       []float64 `yaml:"bbox" mapstructure:"bbox"`
}

// SQLConfig configures statement rendering.
type SQLConfig struct {
	OnConflictDoNothing bool `yaml:"on_conflict_do_nothing" mapstructure:"on_conflict_do_nothing"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// DatabaseConfig configures the Postgres target for the load command.
type DatabaseConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"anthropic.key",
		"anthropic.base_url",
		"paths.messages_file",
		"finalize.profile_id",
		"finalize.created_by",
		"database.url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 8000)
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("anthropic.retry_attempts", 3)
	v.SetDefault("anthropic.cache_ttl", "5m")
	v.SetDefault("extract.batch_size", 20)
	v.SetDefault("extract.min_message_length", 20)
	v.SetDefault("extract.rate_limit_delay_ms", 500)
	v.SetDefault("extract.failure_delay_multiplier", 3)
	v.SetDefault("paths.output_dir", "./data/outputs")
	v.SetDefault("paths.landmarks_file", "./data/landmarks.json")
	v.SetDefault("finalize.city_id", "mazunte")
	v.SetDefault("finalize.locality_name", "Mazunte")
	v.SetDefault("geo.default_lat", 15.6685)
	v.SetDefault("geo.default_lng", -96.5542)
	v.SetDefault("geo.bbox", []float64{-97.5, 15.0, -95.5, 16.5})
	v.SetDefault("sql.on_conflict_do_nothing", true)
	v.SetDefault("store.sqlite_path", "./data/runs.db")
	v.SetDefault("database.max_conns", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Stages accepted by Validate.
const (
	StageExtract  = "extract"
	StageProcess  = "process"
	StageGenerate = "generate"
	StageAll      = "all"
	StageLoad     = "load"
	StageRuns     = "runs"
)

// Validate checks that the keys the given command needs are present and
// reports every problem at once.
func (c *Config) Validate(stage string) error {
	var errs []string
	require := func(v, key string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch stage {
	case StageExtract:
		require(c.Anthropic.Key, "anthropic.key")
		require(c.Paths.MessagesFile, "paths.messages_file")
	case StageProcess:
		require(c.Paths.MessagesFile, "paths.messages_file")
		require(c.Finalize.ProfileID, "finalize.profile_id")
	case StageGenerate:
	case StageAll:
		require(c.Anthropic.Key, "anthropic.key")
		require(c.Paths.MessagesFile, "paths.messages_file")
		require(c.Finalize.ProfileID, "finalize.profile_id")
	case StageLoad:
		require(c.Database.URL, "database.url")
	case StageRuns:
		require(c.Store.SQLitePath, "store.sqlite_path")
	default:
		return eris.Errorf("config: unknown stage %q", stage)
	}

	if stage != StageLoad && stage != StageRuns {
		require(c.Paths.OutputDir, "paths.output_dir")
		if c.Extract.BatchSize < 1 {
			errs = append(errs, "extract.batch_size must be at least 1")
		}
		if c.Extract.MinMessageLength < 0 {
			errs = append(errs, "extract.min_message_length must not be negative")
		}
		if n := len(c.Geo.BBox); n != 0 && n != 4 {
			errs = append(errs, fmt.Sprintf("geo.bbox must have 4 values, got %d", n))
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
