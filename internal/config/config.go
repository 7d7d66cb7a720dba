// Package config provides configuration loading and structs for the kaimono server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogLevel   string           `yaml:"log_level,omitempty"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Featurizer FeaturizerConfig `yaml:"featurizer"`
	Index      IndexConfig      `yaml:"index"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the catalog store.
type StorageConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
	PostgresDSN  string `yaml:"postgres_dsn,omitempty"`
}

// FeaturizerConfig holds TF-IDF settings.
type FeaturizerConfig struct {
	MaxFeatures    int `yaml:"max_features"`
	NGramMin       int `yaml:"ngram_min"`
	NGramMax       int `yaml:"ngram_max"`
	MinTokenLength int `yaml:"min_token_length"`
	Workers        int `yaml:"workers"`
}

// IndexConfig holds similarity index settings.
type IndexConfig struct {
	// Type is "memory" (single goroutine scan) or "parallel" (sharded scan).
	Type         string `yaml:"type"`
	Workers      int    `yaml:"workers"`
	MaxNeighbors int    `yaml:"max_neighbors"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	DefaultLimit    int           `yaml:"default_limit"`
	MaxLimit        int           `yaml:"max_limit"`
	Reason          string        `yaml:"reason"`
	CacheSize       int           `yaml:"cache_size"`
	TrainOnStartup  *bool         `yaml:"train_on_startup"`
	LazyTrain       *bool         `yaml:"lazy_train"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetrainInterval time.Duration `yaml:"retrain_interval"`
}

// TrainOnStartupOrDefault returns whether to train when the server starts; defaults to true when unset.
func (r *RecommendConfig) TrainOnStartupOrDefault() bool {
	if r.TrainOnStartup != nil {
		return *r.TrainOnStartup
	}
	return true
}

// LazyTrainOrDefault returns whether a request may trigger a cold-start train; defaults to true when unset.
func (r *RecommendConfig) LazyTrainOrDefault() bool {
	if r.LazyTrain != nil {
		return *r.LazyTrain
	}
	return true
}

// CatalogConfig holds catalog import directory settings.
type CatalogConfig struct {
	ImportDirectories []string      `yaml:"import_directories"`
	Extensions        []string      `yaml:"extensions"`
	Recursive         *bool         `yaml:"recursive"`
	RetrainDebounce   time.Duration `yaml:"retrain_debounce"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (c *CatalogConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides and defaults,
// and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Storage.DatabasePath != ":memory:" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	for i := range cfg.Catalog.ImportDirectories {
		cfg.Catalog.ImportDirectories[i] = expandPath(cfg.Catalog.ImportDirectories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("KAIMONO_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KAIMONO_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := os.LookupEnv("KAIMONO_DATABASE_PATH"); ok && v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v, ok := os.LookupEnv("KAIMONO_POSTGRES_DSN"); ok && v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.PostgresDSN = v
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
