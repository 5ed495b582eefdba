package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Settings is the typed view of the configuration used by the marketplace.
type Settings struct {
	GameVersion        string
	Loader             string
	ServerDir          string
	PageSize           int
	OptionalDepsOn     bool
	ResolveParallelism int
	MaxRetries         int
	Timeout            time.Duration
	UserAgent          string
	ModrinthURL        string
	CurseForgeURL      string
	CurseForgeAPIKey   string
}

// Current returns the settings held by the global Viper instance.
// Call Load first.
func Current() Settings {
	return FromViper(viper.GetViper())
}

// FromViper reads settings from v, applying defaults for unset keys.
func FromViper(v *viper.Viper) Settings {
	setDefaults(v)
	return Settings{
		GameVersion:        strings.TrimSpace(v.GetString(KeyGameVersion)),
		Loader:             strings.ToLower(strings.TrimSpace(v.GetString(KeyLoader))),
		ServerDir:          v.GetString(KeyServerDir),
		PageSize:           v.GetInt(KeyPageSize),
		OptionalDepsOn:     v.GetBool(KeyOptionalDepsOn),
		ResolveParallelism: v.GetInt(KeyResolveParallelism),
		MaxRetries:         v.GetInt(KeyMaxRetries),
		Timeout:            v.GetDuration(KeyTimeout),
		UserAgent:          v.GetString(KeyUserAgent),
		ModrinthURL:        v.GetString(KeyModrinthURL),
		CurseForgeURL:      v.GetString(KeyCurseForgeURL),
		CurseForgeAPIKey:   v.GetString(KeyCurseForgeAPIKey),
	}
}

// Validate reports the first setting that cannot be used.
func (s Settings) Validate() error {
	if s.GameVersion != "" {
		if _, err := semver.NewVersion(s.GameVersion); err != nil {
			return fmt.Errorf("%s %q is not a valid version: %w", KeyGameVersion, s.GameVersion, err)
		}
	}
	if s.PageSize < 1 || s.PageSize > 100 {
		return fmt.Errorf("%s must be between 1 and 100, got %d", KeyPageSize, s.PageSize)
	}
	if s.ResolveParallelism < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyResolveParallelism, s.ResolveParallelism)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyMaxRetries, s.MaxRetries)
	}
	return nil
}

// Check reports whether setting key to value would leave the global
// configuration valid. Nothing is saved.
func Check(key, value string) error {
	v := viper.New()
	for _, k := range viper.AllKeys() {
		v.Set(k, viper.Get(k))
	}
	v.Set(key, value)
	return FromViper(v).Validate()
}
