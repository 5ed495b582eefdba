package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/manifest"
	"github.com/serverkit/addonctl/internal/market"
	"github.com/serverkit/addonctl/internal/prompt"
	"github.com/serverkit/addonctl/internal/userdata"
)

var (
	installFrom     string
	installKind     string
	installProvider string
	installYes      bool
	installOptional bool
	installNoDeps   bool
)

var installCmd = &cobra.Command{
	Use:   "install [provider:id | pkg:provider/id | id]...",
	Short: "Install addons and their dependencies",
	Long: `Install addons into the server's mods/ or plugins/ directory.

Dependencies are resolved and shown for review before anything is
downloaded. Required dependencies are pre-selected; optional ones are
listed but left unchecked unless --optional is given. Use --from to
install every addon named in an addon list file.`,
	Example: `  addonctl install modrinth:AANobbMI
  addonctl install --kind plugin --provider curseforge 31043
  addonctl install --from performance --yes`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installFrom, "from", "f", "", "Addon list file, or the name of a saved list")
	installCmd.Flags().StringVarP(&installKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	installCmd.Flags().StringVarP(&installProvider, "provider", "p", "modrinth", "Provider for bare identifiers")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Install the default choices without prompting")
	installCmd.Flags().BoolVar(&installOptional, "optional", false, "Pre-select optional dependencies")
	installCmd.Flags().BoolVar(&installNoDeps, "no-deps", false, "Install only the named addons, skip dependency resolution")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && installFrom == "" {
		return fmt.Errorf("nothing to install: pass addon keys or --from <list>")
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(installKind)
	if err != nil {
		return err
	}
	provider, err := catalog.ParseProvider(installProvider)
	if err != nil {
		return err
	}
	keys, err := parseKeys(args, provider)
	if err != nil {
		return err
	}

	var pins map[catalog.Key]string
	if installFrom != "" {
		listKind, listKeys, listPins, err := loadList(env, installFrom)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("kind") && listKind != kind {
			return fmt.Errorf("%s lists %ss but --kind is %s", installFrom, listKind, kind)
		}
		kind = listKind
		keys = dedupeKeys(append(listKeys, keys...))
		pins = listPins
	}

	return installKeys(cmd.Context(), cmd.OutOrStdout(), env, kind, keys, pins, prompt.NewHuhUI(), reviewOptions{
		yes:    installYes,
		noDeps: installNoDeps,
	}, installOptional)
}

// loadList reads an addon list and applies its target to env.
func loadList(env *environment, arg string) (catalog.Kind, []catalog.Key, map[catalog.Key]string, error) {
	path, err := userdata.ResolveList(arg)
	if err != nil {
		return 0, nil, nil, err
	}
	list, err := manifest.ParseFile(path)
	if err != nil {
		return 0, nil, nil, err
	}
	kind, err := list.AddonKind()
	if err != nil {
		return 0, nil, nil, err
	}
	keys, err := list.Keys()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	pins := make(map[catalog.Key]string)
	for _, a := range list.Addons {
		if a.Version == "" {
			continue
		}
		if k, err := a.Key(); err == nil {
			pins[k] = a.Version
		}
	}
	env.pinTarget(list.Target())
	return kind, keys, pins, nil
}

// installKeys selects the items behind keys in a fresh session and runs the
// review and install steps.
func installKeys(ctx context.Context, w io.Writer, env *environment, kind catalog.Kind, keys []catalog.Key, pins map[catalog.Key]string, ui prompt.UI, opts reviewOptions, optional bool) error {
	if !env.target().Ready() {
		return errNoTarget
	}

	items, err := lookupItems(ctx, env.mux, keys)
	if err != nil {
		return err
	}
	items, pins = canonicalItems(keys, items, pins)

	inst := env.installerFor(kind)
	var extra []market.SessionOption
	if optional {
		extra = append(extra, market.WithOptionalDefault(true))
	}
	sess := env.newSession(w, kind, inst, pins, extra...)
	for _, it := range items {
		if !sess.Selection().Contains(it.Key()) {
			sess.Selection().Toggle(it)
		}
	}

	fmt.Fprintf(w, "Installing into %s (%s)\n", inst.Dir(), describeTarget(env.target()))
	return reviewAndInstall(ctx, w, sess, ui, opts)
}

func describeTarget(t catalog.Target) string {
	if t.Loader == "" {
		return t.GameVersion
	}
	return t.GameVersion + ", " + t.Loader
}
