package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/serverkit/addonctl/internal/branding"
	"github.com/serverkit/addonctl/internal/catalog"
	_ "github.com/serverkit/addonctl/internal/catalog/curseforge"
	_ "github.com/serverkit/addonctl/internal/catalog/modrinth"
	"github.com/serverkit/addonctl/internal/config"
	"github.com/serverkit/addonctl/internal/fetch"
	"github.com/serverkit/addonctl/internal/installer"
	"github.com/serverkit/addonctl/internal/market"
	"github.com/serverkit/addonctl/internal/userdata"
)

var errNoTarget = fmt.Errorf("%w: pass --game-version or run '%s config set %s <version>'",
	market.ErrTargetNotReady, branding.CLIName(), config.KeyGameVersion)

// environment is everything a command needs to talk to the catalogs and
// the server directory.
type environment struct {
	settings   config.Settings
	mux        *catalog.Mux
	downloader installer.Downloader
	logger     *slog.Logger
}

// loadEnvironment builds the environment from configuration. Tests replace
// it with one backed by fakes.
var loadEnvironment = func() (*environment, error) {
	s := config.Current()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ua := userAgent(s)

	var clients []catalog.Client
	for _, p := range catalog.Registered() {
		opts := catalog.Options{
			UserAgent:  ua,
			MaxRetries: s.MaxRetries,
			Timeout:    s.Timeout,
			Logger:     logger,
		}
		switch p {
		case catalog.Modrinth:
			opts.BaseURL = s.ModrinthURL
		case catalog.CurseForge:
			opts.BaseURL = s.CurseForgeURL
			opts.APIKey = s.CurseForgeAPIKey
			if opts.APIKey == "" {
				logger.Debug("no CurseForge API key configured", "key", config.KeyCurseForgeAPIKey)
			}
		}
		c, err := catalog.New(p, opts)
		if err != nil {
			return nil, fmt.Errorf("creating %s client: %w", p.DisplayName(), err)
		}
		clients = append(clients, c)
	}

	env := &environment{
		settings: s,
		mux:      catalog.NewMux(clients...),
		downloader: fetch.New(
			fetch.WithUserAgent(ua),
			fetch.WithMaxRetries(s.MaxRetries),
			fetch.WithLogger(logger),
		),
		logger: logger,
	}
	env.mux.SetTarget(catalog.Target{GameVersion: s.GameVersion, Loader: s.Loader})
	return env, nil
}

// userAgent is the User-Agent sent to providers: the configured value, or
// the CLI name and build version.
func userAgent(s config.Settings) string {
	if s.UserAgent != "" {
		return s.UserAgent
	}
	return branding.UserAgent(buildVersion)
}

// target returns the compatibility context in effect.
func (e *environment) target() catalog.Target {
	return e.mux.Target()
}

// pinTarget overrides the configured target with the non-empty fields of t.
func (e *environment) pinTarget(t catalog.Target) {
	cur := e.mux.Target()
	if t.GameVersion != "" {
		cur.GameVersion = t.GameVersion
	}
	if t.Loader != "" {
		cur.Loader = strings.ToLower(t.Loader)
	}
	e.mux.SetTarget(cur)
}

func (e *environment) installerFor(kind catalog.Kind) *installer.Installer {
	dir := userdata.InstallDir(e.settings.ServerDir, kind)
	ledger := installer.OpenLedger(userdata.LedgerPath(dir))
	return installer.New(e.mux, e.downloader, dir, ledger, installer.WithLogger(e.logger))
}

// newSession wires a marketplace session that installs through inst and
// reports progress on w. Items with an entry in pins are installed at that
// version instead of the newest compatible one.
func (e *environment) newSession(w io.Writer, kind catalog.Kind, inst *installer.Installer, pins map[catalog.Key]string, extra ...market.SessionOption) *market.Session {
	var target market.Installer = inst
	if len(pins) > 0 {
		target = market.InstallerFunc(func(ctx context.Context, item catalog.Item) error {
			if v, ok := pins[item.Key()]; ok {
				return inst.InstallVersion(ctx, item, v)
			}
			return inst.Install(ctx, item)
		})
	}

	opts := []market.SessionOption{
		market.WithOptionalDefault(e.settings.OptionalDepsOn),
		market.WithParallelism(e.settings.ResolveParallelism),
		market.WithPageSize(e.settings.PageSize),
		market.WithProgress(progressPrinter(w)),
		market.WithInstalledHook(func(r *market.InstallReport) {
			fmt.Fprintf(w, "  Recorded %d %s in %s\n", len(r.Installed), pluralize("addon", len(r.Installed)), userdata.LedgerPath(inst.Dir()))
		}),
		market.WithSessionLogger(e.logger),
	}
	sess := market.NewSession(kind, e.mux, e.mux, target, append(opts, extra...)...)
	sess.Search().SetTarget(e.target())
	return sess
}

func progressPrinter(w io.Writer) market.ProgressFunc {
	return func(p market.Progress) {
		if p.Name == "" {
			return
		}
		fmt.Fprintf(w, "  [%d/%d] Installing %s...\n", p.Current+1, p.Total, p.Name)
	}
}

// parseKeys turns command arguments into keys. Bare identifiers belong to
// fallback. Repeated keys are dropped.
func parseKeys(args []string, fallback catalog.Provider) ([]catalog.Key, error) {
	var keys []catalog.Key
	for _, arg := range args {
		var (
			k   catalog.Key
			err error
		)
		if strings.Contains(arg, ":") {
			k, err = catalog.ParseKey(arg)
		} else {
			k = catalog.Key{Provider: fallback, ID: strings.TrimSpace(arg)}
		}
		if err != nil {
			return nil, err
		}
		if k.ID == "" {
			return nil, fmt.Errorf("empty addon identifier in %q", arg)
		}
		keys = append(keys, k)
	}
	return dedupeKeys(keys), nil
}

func dedupeKeys(keys []catalog.Key) []catalog.Key {
	seen := make(map[catalog.Key]bool, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// lookupItems fetches the items for keys, preserving order.
func lookupItems(ctx context.Context, mux *catalog.Mux, keys []catalog.Key) ([]catalog.Item, error) {
	items := make([]catalog.Item, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, k := range keys {
		g.Go(func() error {
			it, err := mux.Item(gctx, k)
			if err != nil {
				var nf *catalog.NotFoundError
				if errors.As(err, &nf) {
					return err
				}
				return fmt.Errorf("looking up %s: %w", k, err)
			}
			items[i] = *it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// canonicalItems pairs each requested key with the item it resolved to.
// Providers accept aliases such as slugs, so two keys may name one item;
// the first occurrence wins and pins move to the item's own key.
func canonicalItems(keys []catalog.Key, items []catalog.Item, pins map[catalog.Key]string) ([]catalog.Item, map[catalog.Key]string) {
	seen := make(map[catalog.Key]bool, len(items))
	out := items[:0:0]
	canon := make(map[catalog.Key]string, len(pins))
	for i, it := range items {
		k := it.Key()
		if v, ok := pins[keys[i]]; ok {
			if _, dup := canon[k]; !dup {
				canon[k] = v
			}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out, canon
}

func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("Warning:"), fmt.Sprintf(format, args...))
}

func pluralize(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
