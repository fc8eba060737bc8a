// Package config provides configuration loading and structs for kbeval.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Model      ModelConfig      `yaml:"model"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Shell      ShellConfig      `yaml:"shell"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the path of the evaluation run database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DatasetConfig points at the prepared dataset directory: vocabularies,
// train/valid/test splits and most-frequent substitute maps.
type DatasetConfig struct {
	Dir           string `yaml:"dir"`
	VocabEntity   string `yaml:"vocab_entity"`
	VocabRelation string `yaml:"vocab_relation"`
}

// EntityVocabPath returns the entity vocabulary path, defaulting to
// vocab_entity.txt inside the dataset directory.
func (d *DatasetConfig) EntityVocabPath() string {
	if d.VocabEntity != "" {
		return d.VocabEntity
	}
	return filepath.Join(d.Dir, "vocab_entity.txt")
}

// RelationVocabPath returns the relation vocabulary path, defaulting to
// vocab_relation.txt inside the dataset directory.
func (d *DatasetConfig) RelationVocabPath() string {
	if d.VocabRelation != "" {
		return d.VocabRelation
	}
	return filepath.Join(d.Dir, "vocab_relation.txt")
}

// ModelConfig points at the directory holding the trained parameter arrays.
type ModelConfig struct {
	Dir string `yaml:"dir"`
}

// EvaluationConfig holds link-prediction evaluation settings.
type EvaluationConfig struct {
	Split       string `yaml:"split"`
	Adjust      bool   `yaml:"adjust"`
	DumpRanking *bool  `yaml:"dump_ranking"`
	Workers     int    `yaml:"workers"`
	TopK        int    `yaml:"top_k"`
}

// DumpRankingOrDefault returns whether ranking detail is written; defaults to true when unset.
func (e *EvaluationConfig) DumpRankingOrDefault() bool {
	if e.DumpRanking != nil {
		return *e.DumpRanking
	}
	return true
}

// ShellConfig holds interactive shell settings.
type ShellConfig struct {
	TopK   int    `yaml:"top_k"`
	Prompt string `yaml:"prompt"`
}

// WatchConfig holds model directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	DebounceMS  int      `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Dataset.Dir = expandPath(cfg.Dataset.Dir, configDir)
	cfg.Model.Dir = expandPath(cfg.Model.Dir, configDir)
	if cfg.Dataset.VocabEntity != "" {
		cfg.Dataset.VocabEntity = expandPath(cfg.Dataset.VocabEntity, configDir)
	}
	if cfg.Dataset.VocabRelation != "" {
		cfg.Dataset.VocabRelation = expandPath(cfg.Dataset.VocabRelation, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
