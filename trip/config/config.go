package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Router  RouterConfig  `mapstructure:"router"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Weather WeatherConfig `mapstructure:"weather"`
	Search  SearchConfig  `mapstructure:"search"`
}

// StoreConfig stores memory persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"` // Single JSON document backing the store
}

// LLMConfig stores generation backend settings.
type LLMConfig struct {
	BaseURL      string        `mapstructure:"base_url"` // OpenAI-compatible endpoint (Ollama works too)
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	MaxNewTokens int           `mapstructure:"max_new_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	TopK         int           `mapstructure:"top_k"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RouterConfig stores classification and routing settings.
type RouterConfig struct {
	Threshold float64 `mapstructure:"threshold"` // Confidence above this routes to the classified handler
	Protocol  string  `mapstructure:"protocol"`  // "json" or "line" classification protocol
}

// MemoryConfig stores conversation context settings.
type MemoryConfig struct {
	MaxContextTurns int  `mapstructure:"max_context_turns"` // Turn window loaded into a context
	MaxMemories     int  `mapstructure:"max_memories"`      // Cap on relevant memories per context
	Enabled         bool `mapstructure:"enabled"`
}

// WeatherConfig stores the weather data source settings.
type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig stores the web search data source settings.
type SearchConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	EngineID string        `mapstructure:"engine_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tripmate")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("store.path", "tripmate_memory.json")

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.max_new_tokens", 256)
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.top_k", 50)
	v.SetDefault("llm.timeout", "120s")

	v.SetDefault("router.threshold", 0.3)
	v.SetDefault("router.protocol", "json")

	v.SetDefault("memory.max_context_turns", 10)
	v.SetDefault("memory.max_memories", 5)
	v.SetDefault("memory.enabled", true)

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.timeout", "10s")

	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.timeout", "10s")

	v.AutomaticEnv()
	v.SetEnvPrefix("tripmate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}
