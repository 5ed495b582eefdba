package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/serverkit/addonctl/internal/branding"
	"github.com/serverkit/addonctl/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` finds mods and plugins on Modrinth and CurseForge, resolves
their dependencies and installs them into a game server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		if verbose {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log requests and resolution steps to stderr")
	flags.String("game-version", "", "Target game version (overrides "+config.KeyGameVersion+")")
	flags.String("loader", "", "Target mod loader or server platform (overrides "+config.KeyLoader+")")
	flags.String("server-dir", "", "Server directory holding mods/ and plugins/ (overrides "+config.KeyServerDir+")")

	_ = viper.BindPFlag(config.KeyGameVersion, flags.Lookup("game-version"))
	_ = viper.BindPFlag(config.KeyLoader, flags.Lookup("loader"))
	_ = viper.BindPFlag(config.KeyServerDir, flags.Lookup("server-dir"))
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
	}
	return err
}
