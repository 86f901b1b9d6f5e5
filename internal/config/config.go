// Package config loads lawretrieval's runtime configuration from a config
// file, environment variables, and built-in defaults, in that precedence
// order (file/env override defaults; env overrides file).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Store     Store     `mapstructure:"store"`
	Vector    Vector    `mapstructure:"vector"`
	Cache     Cache     `mapstructure:"cache"`
	Fusion    Fusion    `mapstructure:"fusion"`
	Boost     Boost     `mapstructure:"boost"`
	Embedder  Embedder  `mapstructure:"embedder"`
	App       App       `mapstructure:"app"`
}

// Store holds persistence-adapter configuration (C3). DataDir is a
// directory, not a file path: store.NewStore creates
// legal_database.db inside it.
type Store struct {
	DataDir  string `mapstructure:"data_dir"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Vector holds vector-index configuration (C7/C11).
type Vector struct {
	ModelName      string        `mapstructure:"model_name"`
	PreloadTimeout time.Duration `mapstructure:"preload_timeout"`
	SearchTimeout  time.Duration `mapstructure:"search_timeout"`
}

// Cache holds the three bounded LRU cache sizes (C3).
type Cache struct {
	AliasSize   int `mapstructure:"alias_size"`
	LawSize     int `mapstructure:"law_size"`
	ConceptSize int `mapstructure:"concept_size"`
}

// Fusion holds RRF fusion configuration (C8).
type Fusion struct {
	K             int     `mapstructure:"k"`
	ConceptWeight float64 `mapstructure:"concept_weight"`
	FTSWeight     float64 `mapstructure:"fts_weight"`
	VectorWeight  float64 `mapstructure:"vector_weight"`
}

// Boost holds the article-metadata boost parameters used by the vector
// index (C7).
type Boost struct {
	CoreLawTitles        []string `mapstructure:"core_law_titles"`
	CoreLawFactor         float64  `mapstructure:"core_law_factor"`
	ShortArticleThreshold int      `mapstructure:"short_article_threshold"`
	ShortArticleFactor    float64  `mapstructure:"short_article_factor"`
	TinyArticleThreshold  int      `mapstructure:"tiny_article_threshold"`
	TinyArticleFactor     float64  `mapstructure:"tiny_article_factor"`
}

// Embedder holds the external embedder collaborator's configuration.
type Embedder struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// App holds general application configuration.
type App struct {
	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"config_file"`
}

var globalConfig *Config

// Load loads the configuration from a config file, the environment, and
// defaults, in that precedence order. An empty configFile searches the
// default locations (./.lawctl.yaml, then $HOME/.lawctl.yaml).
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".lawctl")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it with defaults if it
// has not been loaded yet.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests that need
// an isolated configuration per test case.
func Reset() {
	globalConfig = nil
}

func setDefaults() {
	viper.SetDefault("store.data_dir", "./data")
	viper.SetDefault("store.pool_size", 5)

	viper.SetDefault("vector.model_name", "gemini-embedding-001")
	viper.SetDefault("vector.preload_timeout", "15s")
	viper.SetDefault("vector.search_timeout", "10s")

	viper.SetDefault("cache.alias_size", 1000)
	viper.SetDefault("cache.law_size", 500)
	viper.SetDefault("cache.concept_size", 500)

	viper.SetDefault("fusion.k", 60)
	viper.SetDefault("fusion.concept_weight", 2.0)
	viper.SetDefault("fusion.fts_weight", 1.0)
	viper.SetDefault("fusion.vector_weight", 0.8)

	viper.SetDefault("boost.core_law_titles", []string{"民法典", "公司法", "刑法", "劳动法", "劳动合同法"})
	viper.SetDefault("boost.core_law_factor", 1.15)
	viper.SetDefault("boost.short_article_threshold", 50)
	viper.SetDefault("boost.short_article_factor", 0.5)
	viper.SetDefault("boost.tiny_article_threshold", 20)
	viper.SetDefault("boost.tiny_article_factor", 0.1)

	viper.SetDefault("embedder.model", "gemini-embedding-001")
	viper.SetDefault("embedder.dimension", 768)

	viper.SetDefault("app.log_level", "info")
}

func bindEnvironmentVariables() {
	_ = viper.BindEnv("store.data_dir", "LAWCTL_DATA_DIR")
	_ = viper.BindEnv("embedder.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("app.log_level", "LAWCTL_LOG_LEVEL")
}
