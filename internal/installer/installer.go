package installer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/serverkit/addonctl/internal/catalog"
)

// ErrChecksumMismatch is returned when a downloaded file does not match the
// hash published by the provider.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// VersionSource lists the versions of an item compatible with a target.
// catalog.Mux implements it.
type VersionSource interface {
	Versions(ctx context.Context, key catalog.Key) ([]catalog.Version, error)
	Target() catalog.Target
}

// Downloader streams a file. fetch.Client implements it.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Installer installs items into one directory.
type Installer struct {
	source     VersionSource
	downloader Downloader
	dir        string
	ledger     *Ledger
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Installer) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithClock overrides the time source used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Installer) { in.now = now }
}

// New returns an installer writing into dir and recording into ledger.
func New(source VersionSource, downloader Downloader, dir string, ledger *Ledger, opts ...Option) *Installer {
	in := &Installer{
		source:     source,
		downloader: downloader,
		dir:        dir,
		ledger:     ledger,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Dir returns the install directory.
func (in *Installer) Dir() string {
	return in.dir
}

// Install installs the newest compatible version of item.
func (in *Installer) Install(ctx context.Context, item catalog.Item) error {
	return in.InstallVersion(ctx, item, "")
}

// InstallVersion installs the version of item identified by versionID (a
// provider version ID or version number). An empty versionID picks the
// newest compatible version.
func (in *Installer) InstallVersion(ctx context.Context, item catalog.Item, versionID string) error {
	key := item.Key()
	versions, err := in.source.Versions(ctx, key)
	if err != nil {
		return fmt.Errorf("listing versions of %s: %w", key, err)
	}

	var v catalog.Version
	if versionID == "" {
		v, err = PickVersion(versions, in.source.Target())
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	} else {
		var ok bool
		if v, ok = findVersion(versions, versionID); !ok {
			return fmt.Errorf("%s version %q: %w", key, versionID, ErrNoCompatibleVersion)
		}
	}

	file, ok := v.PrimaryFile()
	if !ok {
		return fmt.Errorf("%s version %s has no files", key, v.Number)
	}
	name, err := safeName(file.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	in.logger.Debug("downloading", "item", key, "version", v.Number, "file", name)
	if err := in.download(ctx, file, name); err != nil {
		return fmt.Errorf("installing %s: %w", key, err)
	}

	prev, found, err := in.ledger.Get(key)
	if err != nil {
		return err
	}
	if found && prev.FileName != name {
		if err := os.Remove(filepath.Join(in.dir, prev.FileName)); err != nil && !os.IsNotExist(err) {
			in.logger.Warn("removing previous file", "item", key, "file", prev.FileName, "err", err)
		}
	}

	return in.ledger.Record(Entry{
		Provider:      key.Provider.String(),
		ID:            key.ID,
		Title:         item.Title,
		VersionID:     v.ID,
		VersionNumber: v.Number,
		FileName:      name,
		InstalledAt:   in.now().UTC(),
	})
}

// Uninstall deletes the file recorded for key and drops its ledger entry.
func (in *Installer) Uninstall(key catalog.Key) (Entry, error) {
	e, found, err := in.ledger.Get(key)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, &catalog.NotFoundError{Key: key}
	}
	if err := os.Remove(filepath.Join(in.dir, e.FileName)); err != nil && !os.IsNotExist(err) {
		return Entry{}, fmt.Errorf("removing %s: %w", e.FileName, err)
	}
	if _, err := in.ledger.Remove(key); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// download streams file to <dir>/<name>.part, checks its hash and renames
// it into place.
func (in *Installer) download(ctx context.Context, file catalog.File, name string) error {
	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return fmt.Errorf("creating install directory: %w", err)
	}

	body, _, err := in.downloader.Download(ctx, file.URL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	defer body.Close()

	dest := filepath.Join(in.dir, name)
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("creating %s: %w", part, err)
	}

	h := sha1.New()
	_, copyErr := io.Copy(io.MultiWriter(f, h), body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(part)
		return fmt.Errorf("writing %s: %w", name, copyErr)
	}
	if closeErr != nil {
		os.Remove(part)
		return fmt.Errorf("closing %s: %w", name, closeErr)
	}

	if file.SHA1 != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(got, file.SHA1) {
			os.Remove(part)
			return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, name, file.SHA1, got)
		}
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("moving %s into place: %w", name, err)
	}
	return nil
}

func safeName(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) || base != name {
		return "", fmt.Errorf("refusing unsafe file name %q", name)
	}
	return base, nil
}

// Update is an installed entry with a newer compatible version available.
type Update struct {
	Entry  Entry
	Latest catalog.Version
}

// Item returns the catalog item the entry was installed from.
func (u Update) Item() (catalog.Item, error) {
	key, err := u.Entry.Key()
	if err != nil {
		return catalog.Item{}, err
	}
	return catalog.Item{Provider: key.Provider, ID: key.ID, Title: u.Entry.Title}, nil
}

// Outdated compares every ledger entry with the newest compatible version.
// Entries with no compatible version are logged and skipped.
func (in *Installer) Outdated(ctx context.Context) ([]Update, error) {
	entries, err := in.ledger.List()
	if err != nil {
		return nil, err
	}

	var updates []Update
	for _, e := range entries {
		key, err := e.Key()
		if err != nil {
			in.logger.Warn("skipping ledger entry", "provider", e.Provider, "id", e.ID, "err", err)
			continue
		}
		versions, err := in.source.Versions(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("listing versions of %s: %w", key, err)
		}
		latest, err := PickVersion(versions, in.source.Target())
		if errors.Is(err, ErrNoCompatibleVersion) {
			in.logger.Debug("no compatible version", "item", key)
			continue
		}
		if latest.ID == e.VersionID {
			continue
		}
		updates = append(updates, Update{Entry: e, Latest: latest})
	}
	return updates, nil
}
