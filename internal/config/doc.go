// Package config loads and validates the TOML configuration shared by the
// daemon and the CLI. Unset keys fall back to built-in defaults and all
// path values are expanded to absolute paths during load.
package config
