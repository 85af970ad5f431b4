package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Listen     string       `mapstructure:"listen"`
	Token      string       `mapstructure:"token"`
	ModelsFile string       `mapstructure:"models_file"`
	Ollama     OllamaConfig `mapstructure:"ollama"`
	Gemini     GeminiConfig `mapstructure:"gemini"`
	Host       HostConfig   `mapstructure:"host"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type HostConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Selector string `mapstructure:"selector"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "panelbridge")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetDefault("listen", "127.0.0.1:8377")
	viper.SetDefault("ollama.base_url", "http://localhost:11434")

	// Config file is optional; defaults plus env cover the common setup.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Gemini.APIKey, err = ResolveValue(cfg.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini.api_key: %w", err)
	}
	cfg.Token, err = ResolveValue(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}

// GetConfigPath returns the path where the config file should be located.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "panelbridge", "config.yaml"), nil
}
