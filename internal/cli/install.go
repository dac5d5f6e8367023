package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/extpm-labs/extpm/internal/installer"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/spf13/cobra"
)

var (
	installYes    bool
	installDryRun bool
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install a package and its dependencies",
	Long: `Install a package from the registry together with every dependency that is
missing or older than required. Dependencies are installed first, one at a
time; the first failure stops the run and leaves earlier installs in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print the plan without installing")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	plan, err := m.Plan(ctx, name)
	if err != nil {
		return err
	}

	resolver.PrintPlan(out, plan)
	if plan.Empty() || installDryRun {
		return nil
	}

	if !installYes && !confirm(cmd.InOrStdin(), out, "? Proceed with installation? (Y/n) ") {
		fmt.Fprintln(out, "Installation cancelled.")
		return nil
	}

	fmt.Fprintln(out, "Installing...")
	res, err := m.Execute(ctx, plan.Items, printProgress(out))
	m.ScanAll()

	fmt.Fprintln(out)
	if n := len(res.Installed); n > 0 {
		fmt.Fprintf(out, "✓ Installed %d %s.\n", n, pluralize("package", n))
	}
	if err != nil {
		if len(res.NotAttempted) > 0 {
			fmt.Fprintf(out, "  Not attempted: %s\n", strings.Join(res.NotAttempted, ", "))
		}
		return err
	}
	return nil
}

func printProgress(w io.Writer) installer.Progress {
	return func(e installer.Event) {
		switch {
		case e.Err != nil:
			fmt.Fprintf(w, "  ✗ %s (%s failed)\n", e.Item.Name, e.Stage)
		case e.Path != "":
			fmt.Fprintf(w, "  ✓ %s -> %s\n", e.Item.Name, e.Path)
		}
	}
}

// confirm reads a Y/n answer; an empty line means yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "" || answer == "y" || answer == "yes"
	}
	return true
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

