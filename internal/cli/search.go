package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search installed and registry packages",
	Long: `Search installed packages and the registry listing. The query is matched
fuzzily against package names, display names and descriptions; best matches
are listed first. Without a query every package is listed.

The registry listing is served from cache when one exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

// searchEntry represents a package for display.
type searchEntry struct {
	Name        string `json:"name"`
	Title       string `json:"displayName"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Installed   string `json:"installedVersion,omitempty"`
	Source      string `json:"source"`
}

// searchEntries is a fuzzy.Source over entry text.
type searchEntries []searchEntry

func (s searchEntries) String(i int) string {
	e := s[i]
	return e.Name + " " + e.Title + " " + e.Description
}

func (s searchEntries) Len() int { return len(s) }

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) > 0 {
		query = strings.TrimSpace(args[0])
	}

	m, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cat := m.ScanAll()
	snap, err := m.Snapshot(context.Background(), false)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: registry unavailable: %v\n", err)
	}

	entries := filterSearch(collectSearch(cat, snap), query)
	if entries == nil {
		entries = searchEntries{}
	}
	if searchJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		msg := "No packages found"
		if query != "" {
			msg += fmt.Sprintf(" matching %q", query)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tINSTALLED\tSOURCE\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, orDash(e.Version), orDash(e.Installed), e.Source, truncate(e.Description, 60))
	}
	return w.Flush()
}

// collectSearch merges registry and installed packages; a package in both
// appears once with its registry version and installed version.
func collectSearch(cat *catalog.Catalog, snap *registry.Snapshot) searchEntries {
	var out searchEntries
	seen := make(map[string]bool)
	for _, name := range snap.Names() {
		p, _ := snap.Lookup(name)
		e := searchEntry{
			Name:        p.Name,
			Title:       p.Title(),
			Version:     p.Version,
			Description: p.Description,
			Source:      p.Ref().Origin.String(),
		}
		if local, ok := cat.Lookup(name); ok {
			e.Installed = orDash(local.Version)
		}
		seen[name] = true
		out = append(out, e)
	}
	for _, name := range cat.Names() {
		if seen[name] {
			continue
		}
		p, _ := cat.Lookup(name)
		out = append(out, searchEntry{
			Name:        p.Name,
			Title:       p.Title(),
			Version:     p.Version,
			Description: p.Description,
			Installed:   orDash(p.Version),
			Source:      p.Ref().Origin.String(),
		})
	}
	return out
}

// filterSearch returns entries matching query, best match first.
func filterSearch(entries searchEntries, query string) searchEntries {
	if query == "" {
		return entries
	}
	matches := fuzzy.FindFrom(query, entries)
	out := make(searchEntries, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
