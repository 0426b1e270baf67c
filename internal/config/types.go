package config

import "fmt"

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// Default values.
const (
	DefaultTasksFile = "tasks.json"
	DefaultLogDir    = "~/.stq/logs"
	DefaultJournal   = true
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds the full configuration for stq.
type Config struct {
	// Paths
	TasksFile string `toml:"tasks_file"`
	LogDir    string `toml:"log_dir"`

	// Journal enables the per-session JSONL activity journal under LogDir.
	Journal bool `toml:"journal"`

	// Console logging
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Working directory (computed)
	WorkDir string `toml:"-"`
}

// ConfigWithSources holds configuration along with source information for
// each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
	// Unknown lists keys found in config files that stq does not recognize.
	Unknown []string
}

// configFields returns the configurable field names, keyed like the TOML file.
func configFields() []string {
	return []string{
		"tasks_file",
		"log_dir",
		"journal",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// Problems reports values that are syntactically valid but not understood.
func (c *Config) Problems() []string {
	var problems []string
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q (expected debug|info|warn|error|fatal)", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q (expected text|json|logfmt)", c.LogFormat))
	}
	if c.TasksFile == "" {
		problems = append(problems, "tasks_file is empty")
	}
	return problems
}
