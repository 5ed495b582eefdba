package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
)

var (
	categoriesProvider string
	categoriesKind     string
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories a provider offers",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().StringVarP(&categoriesProvider, "provider", "p", "modrinth", "Catalog: modrinth or curseforge")
	categoriesCmd.Flags().StringVarP(&categoriesKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(categoriesKind)
	if err != nil {
		return err
	}
	provider, err := catalog.ParseProvider(categoriesProvider)
	if err != nil {
		return err
	}

	cats, err := env.mux.Categories(cmd.Context(), provider, kind)
	if err != nil {
		return fmt.Errorf("listing %s categories: %w", provider.DisplayName(), err)
	}
	if len(cats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No categories.")
		return nil
	}
	for _, c := range cats {
		if c.ID == c.Name {
			fmt.Fprintln(cmd.OutOrStdout(), c.Name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", c.Name, c.ID)
		}
	}
	return nil
}
