package config

import (
	"os"
	"strings"
)

// loadFromEnv overrides config from STQ_* environment variables.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	if v := os.Getenv("STQ_TASKS"); v != "" {
		cfg.TasksFile = v
		set("tasks_file")
	}
	if v := os.Getenv("STQ_LOG_DIR"); v != "" {
		cfg.LogDir = v
		set("log_dir")
	}
	if v := os.Getenv("STQ_JOURNAL"); v != "" {
		cfg.Journal = boolFromString(v)
		set("journal")
	}
	if v := os.Getenv("STQ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
		set("log_level")
	}
	if v := os.Getenv("STQ_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
		set("log_format")
	}
	if v := os.Getenv("STQ_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		set("log_timestamps")
	}
	if v := os.Getenv("STQ_LOG_CALLER"); v != "" {
		cfg.LogCaller = boolFromString(v)
		set("log_caller")
	}
}

func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
