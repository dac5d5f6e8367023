package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/extpm-labs/extpm/internal/manager"
	"github.com/spf13/cobra"
)

var (
	registryRefresh bool
	registryJSON    bool
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Show the registry listing",
	Long: `Show the packages published in the configured registry repository.

A listing fetched within the cache TTL is shown without any network access.
An older cached listing is shown while a refresh runs; --refresh waits for a
fresh listing instead.`,
	Args: cobra.NoArgs,
	RunE: runRegistry,
}

func init() {
	registryCmd.Flags().BoolVar(&registryRefresh, "refresh", false, "Ignore the TTL and fetch a fresh listing")
	registryCmd.Flags().BoolVar(&registryJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(registryCmd)
}

func runRegistry(cmd *cobra.Command, args []string) error {
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	pending := m.FetchRegistry(ctx, registryRefresh)
	snap := pending.Immediate
	if snap == nil || registryRefresh {
		if snap, err = pending.Wait(ctx); err != nil {
			return fmt.Errorf("fetching registry: %w", err)
		}
	}

	pkgs := manager.Available(snap, m.ScanAll())
	if registryJSON {
		return printJSON(cmd, pkgs)
	}

	out := cmd.OutOrStdout()
	status := "fresh"
	if snap.Stale {
		status = "cached, refreshing"
	}
	fmt.Fprintf(out, "%s (branch %s, fetched %s, %s)\n\n",
		m.Registry().Endpoints().RepoURL(), orDash(snap.Branch), snap.FetchedAt.Local().Format(time.RFC822), status)
	if len(pkgs) == 0 {
		fmt.Fprintln(out, "The registry lists no packages.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tINSTALLED\tFOLDER")
	for _, p := range pkgs {
		installed := ""
		if p.IsInstalled {
			installed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, orDash(p.Version), orDash(installed), p.RemoteFolderName)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if snap.Stale {
		// Let the background refresh land in the cache before exiting.
		if _, err := pending.Wait(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: registry refresh failed: %v\n", err)
		}
	}
	return nil
}
