package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
)

var (
	uninstallKind     string
	uninstallProvider string
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <provider:id | id>...",
	Short: "Remove installed addons",
	Long:  `Delete the files of installed addons and drop them from the installed ledger. Dependencies are left in place.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().StringVarP(&uninstallKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	uninstallCmd.Flags().StringVarP(&uninstallProvider, "provider", "p", "modrinth", "Provider for bare identifiers")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(uninstallKind)
	if err != nil {
		return err
	}
	provider, err := catalog.ParseProvider(uninstallProvider)
	if err != nil {
		return err
	}
	keys, err := parseKeys(args, provider)
	if err != nil {
		return err
	}

	inst := env.installerFor(kind)
	for _, k := range keys {
		e, err := inst.Uninstall(k)
		if err != nil {
			return fmt.Errorf("uninstalling %s: %w", k, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", k, e.FileName)
	}
	return nil
}
