package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	listCategory string
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List every package found under the extensions root, the core root, the
package cache and the tool's own folder. When two folders declare the same
package name the first one found is listed and the other is reported.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents an installed package for display.
type listEntry struct {
	Name     string `json:"name"`
	Title    string `json:"displayName"`
	Version  string `json:"version"`
	Category string `json:"category,omitempty"`
	Root     string `json:"root"`
	Path     string `json:"path"`
}

func runList(cmd *cobra.Command, args []string) error {
	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cat := m.ScanAll()
	entries := listEntries(cat, listCategory)

	for _, c := range cat.Conflicts {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is declared by both %s and %s; using the first\n", c.Name, c.KeptPath, c.IgnoredPath)
	}

	if listJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		if listCategory != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No installed packages matching --category=%s\n", listCategory)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
		}
		return nil
	}
	return printListTable(cmd, entries)
}

func listEntries(cat *catalog.Catalog, category string) []listEntry {
	entries := []listEntry{}
	for _, name := range cat.Names() {
		p, _ := cat.Lookup(name)
		if category != "" && p.Category != category {
			continue
		}
		entries = append(entries, listEntry{
			Name:     p.Name,
			Title:    p.Title(),
			Version:  p.Version,
			Category: p.Category,
			Root:     p.Kind.String(),
			Path:     p.FolderPath,
		})
	}
	return entries
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tROOT\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, orDash(e.Version), e.Root, e.Path)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
