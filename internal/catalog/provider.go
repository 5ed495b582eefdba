package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProvider is returned when a provider name or value is not part
// of the supported set.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider identifies one external catalog. The set is closed; every switch
// over Provider lists all of its values.
type Provider int

const (
	// ProviderUnknown is the zero value and never valid in a request.
	ProviderUnknown Provider = iota
	Modrinth
	CurseForge
)

// Providers returns every supported provider in display order.
func Providers() []Provider {
	return []Provider{Modrinth, CurseForge}
}

// String returns the lowercase provider name used in keys and config.
func (p Provider) String() string {
	switch p {
	case Modrinth:
		return "modrinth"
	case CurseForge:
		return "curseforge"
	case ProviderUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("provider(%d)", int(p))
	}
}

// DisplayName returns the provider's brand name.
func (p Provider) DisplayName() string {
	switch p {
	case Modrinth:
		return "Modrinth"
	case CurseForge:
		return "CurseForge"
	default:
		return p.String()
	}
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	return p == Modrinth || p == CurseForge
}

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "modrinth", "mr":
		return Modrinth, nil
	case "curseforge", "cf":
		return CurseForge, nil
	default:
		return ProviderUnknown, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// Kind is the class of addon a marketplace session deals with.
type Kind int

const (
	KindMod Kind = iota
	KindPlugin
)

// String returns "mod" or "plugin".
func (k Kind) String() string {
	switch k {
	case KindPlugin:
		return "plugin"
	default:
		return "mod"
	}
}

// ParseKind parses "mod"/"mods" or "plugin"/"plugins".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mod", "mods":
		return KindMod, nil
	case "plugin", "plugins":
		return KindPlugin, nil
	default:
		return KindMod, fmt.Errorf("unknown kind %q (want mod or plugin)", s)
	}
}
