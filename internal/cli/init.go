package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the install and cache directories",
	Long: `Create the extensions root, the core root and the registry cache
directory if they do not exist, then print the package roots in scan order.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initializing extpm directories")
	if err := m.Layout().Ensure(out); err != nil {
		return fmt.Errorf("initializing directories: %w", err)
	}

	fmt.Fprintln(out, "\nPackage roots (scan order):")
	for _, r := range m.Roots() {
		fmt.Fprintf(out, "  %-14s %s\n", r.Kind, r.Path)
	}
	return nil
}
