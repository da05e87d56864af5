// Package config loads application configuration from an optional
// config.yaml and WINEVALUE_-prefixed environment variables, and
// installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	PriceAPI  PriceAPIConfig  `yaml:"price_api" mapstructure:"price_api"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings for the agent sources
// and the vision parser.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	SearchModel string `yaml:"search_model" mapstructure:"search_model"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
}

// PriceAPIConfig holds the structured wine-price API settings.
type PriceAPIConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	DailyQuota    int    `yaml:"daily_quota" mapstructure:"daily_quota"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// LookupConfig tunes the enrichment pipeline.
type LookupConfig struct {
	WaveSize         int    `yaml:"wave_size" mapstructure:"wave_size"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	SearchToolBudget int    `yaml:"search_tool_budget" mapstructure:"search_tool_budget"`
	CommunityBudget  int    `yaml:"community_tool_budget" mapstructure:"community_tool_budget"`
	CommunityDomain  string `yaml:"community_domain" mapstructure:"community_domain"`
	MaxContinuations int    `yaml:"max_continuations" mapstructure:"max_continuations"`
}

// SessionConfig tunes session lifecycle.
type SessionConfig struct {
	TTLMinutes        int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepIntervalMins int `yaml:"sweep_interval_mins" mapstructure:"sweep_interval_mins"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WINEVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.search_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("price_api.daily_quota", 95)
	v.SetDefault("price_api.timeout_secs", 5)
	v.SetDefault("price_api.min_interval_ms", 250)
	v.SetDefault("lookup.wave_size", 5)
	v.SetDefault("lookup.cache_ttl_hours", 24)
	v.SetDefault("lookup.search_tool_budget", 4)
	v.SetDefault("lookup.community_tool_budget", 2)
	v.SetDefault("lookup.community_domain", "vivino.com")
	v.SetDefault("lookup.max_continuations", 4)
	v.SetDefault("session.ttl_minutes", 60)
	v.SetDefault("session.sweep_interval_mins", 10)

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

// Validate checks that the credentials required for enrichment are set.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (WINEVALUE_ANTHROPIC_KEY)")
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
