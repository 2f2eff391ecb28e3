// Package config loads and merges apigate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (APIGATE_LOG_LEVEL, APIGATE_STORE_DIR, APIGATE_FORMAT, etc.)
//  3. Config file ($XDG_CONFIG_HOME/apigate/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file,
// and [SetField] to update a single key.
//
// [LoadEnvironment] reads the variables a CI job is started with (token,
// repository URL, pull request number, target branch, build URL).
package config
