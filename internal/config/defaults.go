package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kbeval/runs.db"
	}
	if cfg.Dataset.Dir == "" {
		cfg.Dataset.Dir = "./data"
	}
	if cfg.Model.Dir == "" {
		cfg.Model.Dir = "./model"
	}
	if cfg.Evaluation.Split == "" {
		cfg.Evaluation.Split = "valid"
	}
	if cfg.Evaluation.Workers == 0 {
		cfg.Evaluation.Workers = 1
	}
	if cfg.Evaluation.TopK == 0 {
		cfg.Evaluation.TopK = 10
	}
	if cfg.Shell.TopK == 0 {
		cfg.Shell.TopK = 20
	}
	if cfg.Shell.Prompt == "" {
		cfg.Shell.Prompt = "> "
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 2000
	}
}
