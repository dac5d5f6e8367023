package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dir|file>",
	Short: "Validate a package manifest",
	Long: `Validate a package manifest against the manifest schema. Given a directory,
its extension.json (or extension.yaml) is validated.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if path, err = manifest.Find(path); err != nil {
			return err
		}
	}

	res, err := manifest.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if res.Valid {
		fmt.Fprintf(out, "✓ %s is valid\n", path)
		printWarnings(out, res.Warnings)
		return nil
	}
	fmt.Fprintf(out, "✗ %s has %d %s:\n", path, len(res.Issues), pluralize("issue", len(res.Issues)))
	for _, issue := range res.Issues {
		loc := issue.Path
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(out, "  %s: %s\n", loc, issue.Message)
	}
	printWarnings(out, res.Warnings)
	return errors.New("manifest is invalid")
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
}
