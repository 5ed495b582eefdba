package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/market"
)

var (
	updateKind  string
	updateCheck bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update installed addons to their newest compatible versions",
	Long: `Check every addon in the installed ledger against its provider and install
the newest version compatible with the target game version and loader.

  addonctl update            # update everything
  addonctl update --check    # only list what would change`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVarP(&updateKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(updateKind)
	if err != nil {
		return err
	}
	return updateInstalled(cmd.Context(), cmd.OutOrStdout(), env, kind, updateCheck)
}

func updateInstalled(ctx context.Context, w io.Writer, env *environment, kind catalog.Kind, checkOnly bool) error {
	if !env.target().Ready() {
		return errNoTarget
	}

	inst := env.installerFor(kind)
	fmt.Fprintln(w, "Checking for updates...")
	updates, err := inst.Outdated(ctx)
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}
	if len(updates) == 0 {
		fmt.Fprintf(w, "All %ss are up to date.\n", kind)
		return nil
	}

	items := make([]catalog.Item, 0, len(updates))
	for _, u := range updates {
		from := u.Entry.VersionNumber
		if from == "" {
			from = u.Entry.VersionID
		}
		fmt.Fprintf(w, "  %s:%s  %s -> %s\n", u.Entry.Provider, u.Entry.ID, from, u.Latest.Number)
		it, err := u.Item()
		if err != nil {
			return err
		}
		items = append(items, it)
	}
	if checkOnly {
		return nil
	}

	fmt.Fprintln(w)
	o := market.NewOrchestrator(inst, progressPrinter(w), env.logger)
	report, err := o.Run(ctx, items)
	printInstallResult(w, report, err)
	return err
}
