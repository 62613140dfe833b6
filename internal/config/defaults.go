package config

// Default result-count policy, matching the original HTTP contract.
const (
	DefaultCount = 128
	MaxCount     = 512
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.CacheSize == 0 {
		cfg.Server.CacheSize = 1024
	}
	if cfg.Vectors.Path == "" {
		cfg.Vectors.Path = "/usr/local/var/wordvec/data/vectors.bin"
	}
	if cfg.Vectors.Format == "" {
		cfg.Vectors.Format = "auto"
	}
	if cfg.Vectors.Limit == 0 {
		cfg.Vectors.Limit = 250000
	}
	if cfg.Vectors.ZeroNorm == "" {
		cfg.Vectors.ZeroNorm = "reject"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "lsh"
	}
	if cfg.Index.Tables == 0 {
		cfg.Index.Tables = 16
	}
	if cfg.Index.Planes == 0 {
		cfg.Index.Planes = 12
	}
	if cfg.Search.DefaultCount == 0 {
		cfg.Search.DefaultCount = DefaultCount
	}
	if cfg.Search.MaxCount == 0 {
		cfg.Search.MaxCount = MaxCount
	}
	if cfg.Suggest.MaxDistance == 0 {
		cfg.Suggest.MaxDistance = 2
	}
	if cfg.Suggest.DefaultCount == 0 {
		cfg.Suggest.DefaultCount = 10
	}
}
