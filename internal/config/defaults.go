package config

import "time"

// DefaultReason is the explanation attached to every recommendation.
const DefaultReason = "TF-IDF KNN similar to cart items"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kaimono/data/db/catalog.db"
	}
	if cfg.Featurizer.MaxFeatures == 0 {
		cfg.Featurizer.MaxFeatures = 20000
	}
	if cfg.Featurizer.NGramMin == 0 {
		cfg.Featurizer.NGramMin = 1
	}
	if cfg.Featurizer.NGramMax == 0 {
		cfg.Featurizer.NGramMax = 2
	}
	if cfg.Featurizer.NGramMax < cfg.Featurizer.NGramMin {
		cfg.Featurizer.NGramMax = cfg.Featurizer.NGramMin
	}
	if cfg.Featurizer.MinTokenLength == 0 {
		cfg.Featurizer.MinTokenLength = 2
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.MaxNeighbors == 0 {
		cfg.Index.MaxNeighbors = 50
	}
	if cfg.Recommend.DefaultLimit == 0 {
		cfg.Recommend.DefaultLimit = 8
	}
	if cfg.Recommend.MaxLimit == 0 {
		cfg.Recommend.MaxLimit = 50
	}
	if cfg.Recommend.Reason == "" {
		cfg.Recommend.Reason = DefaultReason
	}
	if cfg.Recommend.CacheSize == 0 {
		cfg.Recommend.CacheSize = 1024
	}
	if cfg.Recommend.RetryBackoff == 0 {
		cfg.Recommend.RetryBackoff = 5 * time.Second
	}
	if cfg.Catalog.Extensions == nil {
		cfg.Catalog.Extensions = []string{".json", ".yaml", ".yml", ".csv", ".xlsx"}
	}
	if cfg.Catalog.RetrainDebounce == 0 {
		cfg.Catalog.RetrainDebounce = 2 * time.Second
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Catalog.ImportDirectories) > 0 && cfg.Catalog.Recursive == nil {
		t := true
		cfg.Catalog.Recursive = &t
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
