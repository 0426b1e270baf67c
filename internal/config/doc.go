// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.stq/stq.toml or OS-specific config directory)
// 3. Project config file (stq.toml or .stq.toml in the working directory,
//    or the file named by STQ_CONFIG)
// 4. Environment variables (STQ_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.stq/stq.toml (preferred)
// - Windows: %APPDATA%\stq\stq.toml
// - macOS: ~/Library/Application Support/stq/stq.toml
// - Linux/BSD: $XDG_CONFIG_HOME/stq/stq.toml or ~/.config/stq/stq.toml
package config
