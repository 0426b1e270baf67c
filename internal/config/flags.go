package config

import "flag"

// parseFlags registers the config flags on fs, parses args, and records a
// SourceFlag entry for every flag given explicitly.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("stq", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.TasksFile, "tasks", cfg.TasksFile, "Path to tasks file")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Journal directory")
	fs.BoolVar(&cfg.Journal, "journal", cfg.Journal, "Write a per-session activity journal")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	flagToSource := map[string]string{
		"tasks":          "tasks_file",
		"log-dir":        "log_dir",
		"journal":        "journal",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"log-timestamps": "log_timestamps",
		"log-caller":     "log_caller",
	}
	fs.Visit(func(f *flag.Flag) {
		if sources == nil {
			return
		}
		if field, ok := flagToSource[f.Name]; ok {
			sources[field] = SourceFlag
		}
	})

	return nil
}
