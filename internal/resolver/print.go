package resolver

import (
	"fmt"
	"io"
	"strings"
)

// PrintPlan prints the plan as a flat tree under its root.
func PrintPlan(w io.Writer, plan *Plan) {
	fmt.Fprintln(w, "Resolving dependencies...")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", plan.Root)
	for i, item := range plan.Items {
		connector := "├── "
		if i == len(plan.Items)-1 {
			connector = "└── "
		}
		fmt.Fprintf(w, "  %s%s\n", connector, itemLabel(&item))
	}
	fmt.Fprintln(w)

	if plan.Empty() {
		fmt.Fprintln(w, "  Nothing to install, all dependencies are satisfied.")
	} else {
		upgrades := 0
		for _, item := range plan.Items {
			if item.IsUpgrade {
				upgrades++
			}
		}
		var parts []string
		if n := len(plan.Items) - upgrades; n > 0 {
			parts = append(parts, fmt.Sprintf("%d new", n))
		}
		if upgrades > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", upgrades, pluralize("upgrade", upgrades)))
		}
		fmt.Fprintf(w, "  Install: %s (%d %s)\n",
			strings.Join(parts, ", "), len(plan.Items), pluralize("package", len(plan.Items)))
	}

	for _, u := range plan.Unresolved {
		fmt.Fprintf(w, "\n  Warning: %s (required by %s) was not found in the registry and has no gitUrl\n",
			u.Name, u.RequiredBy)
	}

	fmt.Fprintln(w)
}

func itemLabel(item *PlanItem) string {
	kind := "new"
	if item.IsUpgrade {
		kind = "upgrade"
	}

	label := fmt.Sprintf("%s: %s", kind, item.DisplayName)
	if item.DisplayName != item.Name {
		label += fmt.Sprintf(" (%s)", item.Name)
	}

	switch {
	case item.IsUpgrade && item.AvailableVersion != "":
		label += fmt.Sprintf(" %s -> %s", orDash(item.InstalledVersion), item.AvailableVersion)
	case item.AvailableVersion != "":
		label += " " + item.AvailableVersion
	case item.Version != "":
		label += " >= " + item.Version
	}

	if item.Remote == nil && item.GitURL != "" {
		label += " [" + item.GitURL + "]"
	}
	return label
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pluralize(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
