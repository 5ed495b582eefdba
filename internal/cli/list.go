package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/config"
	"github.com/serverkit/addonctl/internal/installer"
	"github.com/serverkit/addonctl/internal/userdata"
)

var (
	listKind string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed addons",
	Long:  `List the addons recorded in the installed ledger of the server's mods/ or plugins/ directory.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry is the JSON form of one installed addon.
type listEntry struct {
	Key         string `json:"key"`
	Title       string `json:"title,omitempty"`
	Version     string `json:"version,omitempty"`
	VersionID   string `json:"version_id"`
	File        string `json:"file"`
	InstalledAt string `json:"installed_at"`
}

func runList(cmd *cobra.Command, args []string) error {
	kind, err := catalog.ParseKind(listKind)
	if err != nil {
		return err
	}
	dir := userdata.InstallDir(config.Current().ServerDir, kind)
	entries, err := installer.OpenLedger(userdata.LedgerPath(dir)).List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if listJSON {
		out := make([]listEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, listEntry{
				Key:         e.Provider + ":" + e.ID,
				Title:       e.Title,
				Version:     e.VersionNumber,
				VersionID:   e.VersionID,
				File:        e.FileName,
				InstalledAt: e.InstalledAt.Format(time.RFC3339),
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "No %ss installed in %s.\n", kind, dir)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tVERSION\tFILE\tINSTALLED")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.ID
		}
		fmt.Fprintf(tw, "%s:%s\t%s\t%s\t%s\t%s\n", e.Provider, e.ID, title, e.VersionNumber, e.FileName, humanize.Time(e.InstalledAt))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d %s in %s\n", len(entries), pluralize(kind.String(), len(entries)), dir)
	return nil
}
