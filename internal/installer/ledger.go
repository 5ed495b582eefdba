package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/serverkit/addonctl/internal/catalog"
)

// LedgerFile is the ledger's file name inside an install directory.
const LedgerFile = "installed.yaml"

// Entry records one installed addon.
type Entry struct {
	Provider      string    `yaml:"provider"`
	ID            string    `yaml:"id"`
	Title         string    `yaml:"title,omitempty"`
	VersionID     string    `yaml:"version_id"`
	VersionNumber string    `yaml:"version,omitempty"`
	FileName      string    `yaml:"file"`
	InstalledAt   time.Time `yaml:"installed_at"`
}

// Key returns the catalog key of the entry.
func (e Entry) Key() (catalog.Key, error) {
	p, err := catalog.ParseProvider(e.Provider)
	if err != nil {
		return catalog.Key{}, err
	}
	return catalog.Key{Provider: p, ID: e.ID}, nil
}

type ledgerFile struct {
	Addons []Entry `yaml:"addons"`
}

// Ledger is the YAML record of what has been installed into a directory.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// OpenLedger returns a ledger stored at path. The file is created on the
// first write.
func OpenLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// List returns all entries in the order they were first recorded.
func (l *Ledger) List() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Get returns the entry for key.
func (l *Ledger) Get(key catalog.Key) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return Entry{}, false, err
	}
	if i := index(entries, key); i >= 0 {
		return entries[i], true, nil
	}
	return Entry{}, false, nil
}

// Record adds e or replaces the entry with the same key.
func (l *Ledger) Record(e Entry) error {
	key, err := e.Key()
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	if i := index(entries, key); i >= 0 {
		entries[i] = e
	} else {
		entries = append(entries, e)
	}
	return l.write(entries)
}

// Remove deletes the entry for key. It reports whether one existed.
func (l *Ledger) Remove(key catalog.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return false, err
	}
	i := index(entries, key)
	if i < 0 {
		return false, nil
	}
	return true, l.write(slices.Delete(entries, i, i+1))
}

func index(entries []Entry, key catalog.Key) int {
	return slices.IndexFunc(entries, func(e Entry) bool {
		k, err := e.Key()
		return err == nil && k == key
	})
}

func (l *Ledger) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	var f ledgerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", l.path, err)
	}
	return f.Addons, nil
}

func (l *Ledger) write(entries []Entry) error {
	data, err := yaml.Marshal(ledgerFile{Addons: entries})
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
