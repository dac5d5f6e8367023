package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/extpm-labs/extpm/internal/updater"
	"github.com/spf13/cobra"
)

var (
	outdatedJSON bool
	updateYes    bool
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed packages with newer registry versions",
	Args:  cobra.NoArgs,
	RunE:  runOutdated,
}

var updateCmd = &cobra.Command{
	Use:   "update [name...]",
	Short: "Upgrade outdated packages",
	Long: `Upgrade the named packages, or every outdated package when no name is
given. Each package is upgraded in place together with any dependency it
now requires.`,
	RunE: runUpdate,
}

func init() {
	outdatedCmd.Flags().BoolVar(&outdatedJSON, "json", false, "Output in JSON format")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(outdatedCmd)
	rootCmd.AddCommand(updateCmd)
}

func runOutdated(cmd *cobra.Command, args []string) error {
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := m.Snapshot(context.Background(), false)
	if err != nil {
		return fmt.Errorf("fetching registry: %w", err)
	}
	updates := updater.Check(m.ScanAll(), snap)
	if outdatedJSON {
		if updates == nil {
			updates = []updater.Update{}
		}
		return printJSON(cmd, updates)
	}
	if len(updates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All packages are up to date.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tINSTALLED\tAVAILABLE\tPATH")
	for _, u := range updates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Name, orDash(u.Installed), u.Available, u.Path)
	}
	return w.Flush()
}

func runUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	snap, err := m.Snapshot(ctx, false)
	if err != nil {
		return fmt.Errorf("fetching registry: %w", err)
	}

	names := args
	if len(names) == 0 {
		names = updater.Names(updater.Check(m.ScanAll(), snap))
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "All packages are up to date.")
		return nil
	}

	fmt.Fprintf(out, "Updating: %s\n", strings.Join(names, ", "))
	if !updateYes && !confirm(cmd.InOrStdin(), out, "? Proceed? (Y/n) ") {
		fmt.Fprintln(out, "Update cancelled.")
		return nil
	}

	for _, name := range names {
		plan, res, err := m.Install(ctx, name, printProgress(out))
		if err != nil {
			return err
		}
		if plan.Empty() {
			fmt.Fprintf(out, "  %s is up to date\n", name)
			continue
		}
		fmt.Fprintf(out, "  updated %s (%d %s)\n", name, len(res.Installed), pluralize("package", len(res.Installed)))
	}
	return nil
}
