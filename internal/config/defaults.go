package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		cfg.Server.ReadTimeoutSec = 10
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		cfg.Server.WriteTimeoutSec = 10
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		cfg.Server.ShutdownTimeoutSec = 10
	}
	if cfg.Server.CORSAllowedOrigins == nil {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = "/usr/local/var/bookrec/data/models/model.bvsm"
	}
	if cfg.Model.FetchTimeoutSec <= 0 {
		cfg.Model.FetchTimeoutSec = 30
	}
	if cfg.Catalog.DatabasePath == "" {
		cfg.Catalog.DatabasePath = "/usr/local/var/bookrec/data/db/catalog.db"
	}
	if cfg.Recommend.MaxLimit == 0 {
		cfg.Recommend.MaxLimit = 20
	}
	if cfg.Recommend.DefaultLimit == 0 {
		cfg.Recommend.DefaultLimit = 5
		if cfg.Recommend.MaxLimit > 0 && cfg.Recommend.DefaultLimit > cfg.Recommend.MaxLimit {
			cfg.Recommend.DefaultLimit = cfg.Recommend.MaxLimit
		}
	}
}
