// Package config loads Athena configuration from YAML with environment
// overrides.
//
// The config file is searched at $XDG_CONFIG_HOME/athena/config.yaml and
// ~/.athena/config.yaml. Every key can be overridden with an ATHENA_*
// environment variable (e.g. ATHENA_EVOLUTION_RULE_THRESHOLD=3).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for all Athena subsystems.
type Config struct {
	Memory          MemoryConfig          `yaml:"memory" mapstructure:"memory"`
	Embedding       EmbeddingConfig       `yaml:"embedding" mapstructure:"embedding"`
	Evolution       EvolutionConfig       `yaml:"evolution" mapstructure:"evolution"`
	Personalization PersonalizationConfig `yaml:"personalization" mapstructure:"personalization"`
	Logging         LoggingConfig         `yaml:"logging" mapstructure:"logging"`
}

// MemoryConfig configures the semantic memory store.
type MemoryConfig struct {
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider: "ollama", "openai", or "hash" (offline fallback).
	Provider       string `yaml:"provider" mapstructure:"provider"`
	OllamaEndpoint string `yaml:"ollama_endpoint" mapstructure:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model" mapstructure:"ollama_model"`
	OpenAIBaseURL  string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIAPIKey   string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model" mapstructure:"openai_model"`
}

// EvolutionConfig configures the mistake-to-rule engine.
type EvolutionConfig struct {
	AutoTrack     bool `yaml:"auto_track" mapstructure:"auto_track"`
	RuleThreshold int  `yaml:"rule_threshold" mapstructure:"rule_threshold"`
}

// PersonalizationConfig configures the preference store.
type PersonalizationConfig struct {
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`
	// File is the log file path; empty means stderr only.
	File string `yaml:"file" mapstructure:"file"`
}

// DefaultDataDir returns ~/.athena, the default location for all
// persisted state.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".athena")
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Memory: MemoryConfig{
			DataDir:    dataDir,
			Collection: "athena_memories",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			OpenAIModel:    "text-embedding-3-small",
		},
		Evolution: EvolutionConfig{
			AutoTrack:     true,
			RuleThreshold: 2,
		},
		Personalization: PersonalizationConfig{
			LearningRate: 0.1,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "athena.log"),
		},
	}
}

// Path returns the config file location (respecting XDG_CONFIG_HOME).
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "athena", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".athena", "config.yaml")
}

// Load reads configuration from disk and environment. A missing config
// file is not an error — defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "athena"))
	}
	home, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(home, ".athena"))

	v.SetEnvPrefix("ATHENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
		// Config file not found; defaults apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if cfg.Evolution.RuleThreshold < 1 {
		return nil, fmt.Errorf("config: evolution.rule_threshold must be >= 1, got %d", cfg.Evolution.RuleThreshold)
	}

	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. Used by `athena init`. Refuses to overwrite an existing
// file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: marshaling defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
