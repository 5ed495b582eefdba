package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/serverkit/addonctl/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by the marketplace commands.
const (
	KeyGameVersion        = "game_version"
	KeyLoader             = "loader"
	KeyServerDir          = "server_dir"
	KeyPageSize           = "page_size"
	KeyOptionalDepsOn     = "optional_deps_default"
	KeyResolveParallelism = "resolve_parallelism"
	KeyMaxRetries         = "http.max_retries"
	KeyTimeout            = "http.timeout"
	KeyUserAgent          = "user_agent"
	KeyModrinthURL        = "modrinth.base_url"
	KeyCurseForgeURL      = "curseforge.base_url"
	KeyCurseForgeAPIKey   = "curseforge.api_key"
)

// Dir returns the path to the config directory (~/.addonctl/).
func Dir() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.addonctl/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	setDefaults(viper.GetViper())

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerDir, ".")
	v.SetDefault(KeyPageSize, 20)
	v.SetDefault(KeyOptionalDepsOn, false)
	v.SetDefault(KeyResolveParallelism, 1)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyTimeout, 30*time.Second)
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
