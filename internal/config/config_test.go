package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Evolution.RuleThreshold != 2 {
		t.Errorf("RuleThreshold = %d, want 2", cfg.Evolution.RuleThreshold)
	}
	if !cfg.Evolution.AutoTrack {
		t.Error("AutoTrack = false, want true")
	}
	if cfg.Personalization.LearningRate != 0.1 {
		t.Errorf("LearningRate = %v, want 0.1", cfg.Personalization.LearningRate)
	}
	if cfg.Memory.Collection != "athena_memories" {
		t.Errorf("Collection = %s, want athena_memories", cfg.Memory.Collection)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("Provider = %s, want ollama", cfg.Embedding.Provider)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Evolution.RuleThreshold != 2 {
		t.Errorf("RuleThreshold = %d, want default 2", cfg.Evolution.RuleThreshold)
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "athena")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "evolution:\n  auto_track: false\n  rule_threshold: 5\nembedding:\n  provider: hash\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Evolution.RuleThreshold != 5 {
		t.Errorf("RuleThreshold = %d, want 5", cfg.Evolution.RuleThreshold)
	}
	if cfg.Evolution.AutoTrack {
		t.Error("AutoTrack = true, want false from file")
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("Provider = %s, want hash", cfg.Embedding.Provider)
	}
	// Untouched sections keep their defaults.
	if cfg.Memory.Collection != "athena_memories" {
		t.Errorf("Collection = %s, want default", cfg.Memory.Collection)
	}
}

func TestLoad_RejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "athena")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"),
		[]byte("evolution:\n  rule_threshold: 0\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load accepted rule_threshold 0")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "athena", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Evolution.RuleThreshold != 2 {
		t.Errorf("round-tripped RuleThreshold = %d, want 2", cfg.Evolution.RuleThreshold)
	}

	// Existing files are never overwritten.
	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault overwrote an existing config")
	}
}
