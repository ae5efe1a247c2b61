package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Enrichment Enrichment `mapstructure:"enrichment"`
	Quality    Quality    `mapstructure:"quality"`
	Sources    Sources    `mapstructure:"sources"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	ReasoningModel  string  `mapstructure:"reasoning_model"`  // Outline/enhancement stages
	ThroughputModel string  `mapstructure:"throughput_model"` // Draft stage
	FastModel       string  `mapstructure:"fast_model"`       // SEO metadata stage
	Timeout         string  `mapstructure:"timeout"`
	Temperature     float32 `mapstructure:"temperature"`
}

// Pipeline holds generation pipeline configuration
type Pipeline struct {
	ConsensusEnabled     bool    `mapstructure:"consensus_enabled"`
	ConsensusVariants    int     `mapstructure:"consensus_variants"`
	ReadabilityThreshold float64 `mapstructure:"readability_threshold"`
	MaxInternalLinks     int     `mapstructure:"max_internal_links"`
	ExperienceInjection  bool    `mapstructure:"experience_injection"`
	SiteDomain           string  `mapstructure:"site_domain"`
}

// Enrichment holds optional enrichment provider configuration
type Enrichment struct {
	SERPEnabled     bool `mapstructure:"serp_enabled"`     // Keyword/competitor/intent/length/example providers
	SERPMaxResults  int  `mapstructure:"serp_max_results"` // Results fetched per SERP query
	SemanticEnabled bool `mapstructure:"semantic_enabled"` // AI semantic keyword integration
	EntitiesEnabled bool `mapstructure:"entities_enabled"` // AI entity extraction / structured data
}

// Quality holds quality scoring configuration
type Quality struct {
	Enabled       bool    `mapstructure:"enabled"`
	PassThreshold float64 `mapstructure:"pass_threshold"`
}

// Sources holds citation source discovery configuration
type Sources struct {
	Enabled    bool   `mapstructure:"enabled"`
	MaxSources int    `mapstructure:"max_sources"`
	UserAgent  string `mapstructure:"user_agent"`
	Timeout    string `mapstructure:"timeout"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".longform")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// API key falls back to the environment for backward compatibility
	if config.AI.Gemini.APIKey == "" {
		config.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("ai.gemini.reasoning_model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.throughput_model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.fast_model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("pipeline.consensus_enabled", false)
	viper.SetDefault("pipeline.consensus_variants", 3)
	viper.SetDefault("pipeline.readability_threshold", 60.0)
	viper.SetDefault("pipeline.max_internal_links", 5)
	viper.SetDefault("pipeline.experience_injection", false)

	viper.SetDefault("enrichment.serp_enabled", false)
	viper.SetDefault("enrichment.serp_max_results", 10)
	viper.SetDefault("enrichment.semantic_enabled", false)
	viper.SetDefault("enrichment.entities_enabled", false)

	viper.SetDefault("quality.enabled", true)
	viper.SetDefault("quality.pass_threshold", 70.0)

	viper.SetDefault("sources.enabled", false)
	viper.SetDefault("sources.max_sources", 5)
	viper.SetDefault("sources.user_agent", "longform/1.0")
	viper.SetDefault("sources.timeout", "15s")
}

// validateConfig checks configuration invariants
func validateConfig(config *Config) error {
	if config.Pipeline.ConsensusVariants < 1 {
		return fmt.Errorf("pipeline.consensus_variants must be at least 1, got %d", config.Pipeline.ConsensusVariants)
	}
	if config.Pipeline.MaxInternalLinks < 0 {
		return fmt.Errorf("pipeline.max_internal_links cannot be negative, got %d", config.Pipeline.MaxInternalLinks)
	}
	if config.Quality.PassThreshold < 0 || config.Quality.PassThreshold > 100 {
		return fmt.Errorf("quality.pass_threshold must be within 0-100, got %.1f", config.Quality.PassThreshold)
	}
	return nil
}
