package cli

import (
	"fmt"
	"path/filepath"

	"github.com/extpm-labs/extpm/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	createDir         string
	createDisplayName string
	createDescription string
	createAuthor      string
	createCategory    string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new extension package skeleton",
	Long: `Create a folder holding a new package's extension.json and README. The
folder defaults to the last dot-separated part of the name under the current
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createDir, "dir", "", "Output directory")
	createCmd.Flags().StringVar(&createDisplayName, "display-name", "", "Display name")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description")
	createCmd.Flags().StringVar(&createAuthor, "author", "", "Author")
	createCmd.Flags().StringVar(&createCategory, "category", "", "Category (\"Core\" installs under the core root)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	data := scaffold.NewData(name)
	if createDisplayName != "" {
		data.DisplayName = createDisplayName
	}
	if createDescription != "" {
		data.Description = createDescription
	}
	data.Author = createAuthor
	data.Category = createCategory

	dir := createDir
	if dir == "" {
		dir = folderName(name)
	}

	result, err := scaffold.Generate(data, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s in %s\n", name, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", filepath.Join(result.OutputDir, f))
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return nil
}

func folderName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' && i < len(name)-1 {
			return name[i+1:]
		}
	}
	return name
}
