package manifest

import (
	"errors"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/serverkit/addonctl/internal/catalog"
)

// List is a decoded addon list file.
type List struct {
	Kind        string  `yaml:"kind"`
	GameVersion string  `yaml:"game_version,omitempty"`
	Loader      string  `yaml:"loader,omitempty"`
	Addons      []Addon `yaml:"addons"`
}

// Addon names one addon either by provider and id or by package URL.
type Addon struct {
	Provider string `yaml:"provider,omitempty"`
	ID       string `yaml:"id,omitempty"`
	PURL     string `yaml:"purl,omitempty"`
	Version  string `yaml:"version,omitempty"`
}

// Key resolves the addon to a catalog key.
func (a Addon) Key() (catalog.Key, error) {
	if a.PURL != "" {
		return catalog.ParseKey(a.PURL)
	}
	p, err := catalog.ParseProvider(a.Provider)
	if err != nil {
		return catalog.Key{}, err
	}
	return catalog.Key{Provider: p, ID: a.ID}, nil
}

// AddonKind parses the list's kind.
func (l *List) AddonKind() (catalog.Kind, error) {
	return catalog.ParseKind(l.Kind)
}

// Target returns the compatibility context pinned by the list. Empty fields
// defer to configuration.
func (l *List) Target() catalog.Target {
	return catalog.Target{GameVersion: l.GameVersion, Loader: l.Loader}
}

// Keys returns the addon keys in file order, dropping repeats.
func (l *List) Keys() ([]catalog.Key, error) {
	seen := make(map[catalog.Key]bool, len(l.Addons))
	keys := make([]catalog.Key, 0, len(l.Addons))
	for i, a := range l.Addons {
		k, err := a.Key()
		if err != nil {
			return nil, fmt.Errorf("addon %d: %w", i+1, err)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys, nil
}

// Parse validates data and decodes it.
func Parse(data []byte) (*List, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &InvalidError{Issues: result.Issues}
	}

	var l List
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding addon list: %w", err)
	}
	return &l, nil
}

// ParseFile reads, validates and decodes an addon list file.
func ParseFile(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading addon list %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		var ie *InvalidError
		if errors.As(err, &ie) {
			ie.Path = path
			return nil, ie
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}
