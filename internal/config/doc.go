// Package config manages user-level settings stored at ~/.addonctl/config.yaml.
// It loads the file and ADDONCTL_* environment overrides through Viper and
// exposes both raw key access (for `config get/set`) and a typed Settings view
// consumed by the marketplace commands.
package config
