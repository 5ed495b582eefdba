package catalog

import (
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// Key identifies an item. Identifiers are only unique within a provider, so
// the provider is always part of the key.
type Key struct {
	Provider Provider
	ID       string
}

// String renders the key as "provider:id".
func (k Key) String() string {
	return k.Provider.String() + ":" + k.ID
}

// PURL renders the key as a package URL, e.g. "pkg:modrinth/AANobbMI".
func (k Key) PURL() string {
	return packageurl.NewPackageURL(k.Provider.String(), "", k.ID, "", nil, "").ToString()
}

// ParseKey accepts "provider:id" or a package URL ("pkg:provider/id").
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "pkg:") {
		p, err := packageurl.FromString(s)
		if err != nil {
			return Key{}, fmt.Errorf("parsing package URL %q: %w", s, err)
		}
		provider, err := ParseProvider(p.Type)
		if err != nil {
			return Key{}, err
		}
		if p.Name == "" {
			return Key{}, fmt.Errorf("package URL %q has no name", s)
		}
		return Key{Provider: provider, ID: p.Name}, nil
	}

	name, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Key{}, fmt.Errorf("invalid key %q (want provider:id or pkg:provider/id)", s)
	}
	provider, err := ParseProvider(name)
	if err != nil {
		return Key{}, err
	}
	return Key{Provider: provider, ID: id}, nil
}
