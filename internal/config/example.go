package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# stq configuration file
# Values can be overridden by STQ_* environment variables or CLI flags

# Tasks file (relative to the working directory)
tasks_file = "tasks.json"

# Journal directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.stq/logs"

# Write a JSONL activity journal for every session
journal = true

# Console logging: debug, info, warn, error
log_level = "info"

# Console log format: text, json, logfmt
log_format = "text"

# Show timestamps and caller locations in console logs
log_timestamps = false
log_caller = false
`
}
