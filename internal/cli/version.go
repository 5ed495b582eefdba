package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/branding"
	"github.com/serverkit/addonctl/internal/config"
)

var (
	versionShort bool
	versionJSON  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and client information",
	Long: `Print the build version and the identity addonctl presents to Modrinth and
CurseForge. Include this output when reporting a provider problem.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), currentVersion(config.Current()))
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print the version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(versionCmd)
}

// versionInfo is what the version command reports.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Platform  string `json:"platform"`
	UserAgent string `json:"user_agent"`
	Config    string `json:"config"`
}

func currentVersion(s config.Settings) versionInfo {
	return versionInfo{
		Version:   orUnknown(buildVersion),
		Commit:    orUnknown(buildCommit),
		Date:      orUnknown(buildDate),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent: userAgent(s),
		Config:    config.FilePath(),
	}
}

func writeVersion(w io.Writer, info versionInfo) error {
	switch {
	case versionShort:
		fmt.Fprintln(w, info.Version)
	case versionJSON:
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling version info: %w", err)
		}
		fmt.Fprintln(w, string(out))
	default:
		fmt.Fprintf(w, "%s %s (%s, built %s) %s\n", branding.CLIName(), info.Version, info.Commit, info.Date, info.Platform)
		fmt.Fprintf(w, "  user agent: %s\n", info.UserAgent)
		fmt.Fprintf(w, "  config:     %s\n", info.Config)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
