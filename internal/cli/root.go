package cli

import (
	"fmt"
	"os"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/updater"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	logLevel        string
	metricsTextfile string

	appMetrics = metrics.New()
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers installed extension packages, keeps a cached listing
of the packages published in a registry repository, and installs packages
together with their dependencies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip the banner for commands that manage updates themselves or
		// never touch packages.
		switch cmd.Name() {
		case "update", "outdated", "serve", "version", "config", "get", "set", "validate", "create", "init", "help":
			return
		}
		m, _, err := newManager()
		if err != nil {
			return
		}
		updater.PrintBanner(cmd.ErrOrStderr(), m.Catalog(), m.Registry().Cached())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+branding.EnvVar("LOG_LEVEL"))
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file when the command exits")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	resetManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if metricsTextfile != "" {
		if werr := appMetrics.WriteTextfile(metricsTextfile); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: writing metrics: %v\n", werr)
		}
	}
	return err
}
