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
	Dedup   DedupConfig   `yaml:"dedup" mapstructure:"dedup"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Merge   MergeConfig   `yaml:"merge" mapstructure:"merge"`
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Warm    WarmConfig    `yaml:"warm" mapstructure:"warm"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DedupConfig tunes the duplicate resolution strategies.
type DedupConfig struct {
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	AddressSimilarity float64 `yaml:"address_similarity" mapstructure:"address_similarity"`
	GeoTolerance      float64 `yaml:"geo_tolerance" mapstructure:"geo_tolerance"`
}

// QualityConfig tunes the quality gate.
type QualityConfig struct {
	MinCompleteness float64 `yaml:"min_completeness" mapstructure:"min_completeness"`
	RequirePhoto    bool    `yaml:"require_photo" mapstructure:"require_photo"`
}

// MergeConfig tunes event cluster merging.
type MergeConfig struct {
	TitleThreshold float64  `yaml:"title_threshold" mapstructure:"title_threshold"`
	SourcePriority []string `yaml:"source_priority" mapstructure:"source_priority"`
	VerifyImages   bool     `yaml:"verify_images" mapstructure:"verify_images"`
	ImageRateLimit float64  `yaml:"image_rate_limit" mapstructure:"image_rate_limit"`
}

// IndexConfig configures the full-text search index sink.
type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the Redis cache sink.
type CacheConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	TTLSecs  int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// StoreConfig configures the catalog database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// WarmConfig configures cache warm-up targets.
type WarmConfig struct {
	Cities []string `yaml:"cities" mapstructure:"cities"`
	Flags  []string `yaml:"flags" mapstructure:"flags"`
	Limit  int      `yaml:"limit" mapstructure:"limit"`
}

// ServerConfig configures the ingest HTTP server.
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
	v.SetEnvPrefix("PLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dedup.fuzzy_threshold", 86.0)
	v.SetDefault("dedup.address_similarity", 80.0)
	v.SetDefault("dedup.geo_tolerance", 0.001)
	v.SetDefault("quality.min_completeness", 0.7)
	v.SetDefault("quality.require_photo", true)
	v.SetDefault("merge.title_threshold", 90.0)
	v.SetDefault("merge.source_priority", []string{"timeout_bkk", "bk_magazine"})
	v.SetDefault("merge.verify_images", false)
	v.SetDefault("merge.image_rate_limit", 5.0)
	v.SetDefault("index.path", "places_index.db")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "places.db")
	v.SetDefault("warm.cities", []string{"bangkok"})
	v.SetDefault("warm.flags", []string{"attractions", "shopping", "food_dining", "cultural_heritage"})
	v.SetDefault("warm.limit", 20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
