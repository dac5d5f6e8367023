package version

import (
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric not lexical", "1.2.0", "1.10.0", -1},
		{"older patch", "1.0.0", "1.0.1", -1},
		{"equal", "1.2.3", "1.2.3", 0},
		{"newer", "2.0.0", "1.9.9", 1},
		{"v prefix", "v1.0.0", "1.0.0", 0},
		{"missing component sorts lower", "1.2", "1.2.0", -1},
		{"four part numeric", "1.0.0.10", "1.0.0.9", 1},
		{"single component", "10", "9", 1},
		{"leading zeros", "1.01", "1.1", 0},
		{"prerelease compares as text", "1.0.0-preview.3", "1.0.0", 1},
		{"prerelease tags as text", "1.0.0-beta", "1.0.0-alpha", 1},
		{"lexical fallback", "abc", "abd", -1},
		{"lexical beta before rc", "beta", "rc", -1},
		{"one side not numeric", "1.0.0", "latest", -1},
		{"empty component", "1..0", "1.0", -1},
		{"negative component", "1.-1", "1.0", -1},
		{"empty before version", "", "1.0.0", -1},
		{"version after empty", "1.0.0", "", 1},
		{"both empty", "", "", 0},
		{"whitespace trimmed", " 1.0.0 ", "1.0.0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare_Antisymmetric(t *testing.T) {
	pairs := [][2]string{
		{"1.2.0", "1.10.0"}, {"abc", "abd"}, {"", "1"}, {"1.0.0", "latest"},
		{"1.0.0.10", "1.0.0.9"}, {"1.2", "1.2.0"}, {"1.0.0-preview.3", "1.0.0"},
	}
	for _, p := range pairs {
		if Compare(p[0], p[1]) != -Compare(p[1], p[0]) {
			t.Errorf("Compare not antisymmetric for %q, %q", p[0], p[1])
		}
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		installed, required string
		want                bool
	}{
		{"2.0", "1.0", true},
		{"2.0", "3.0", false},
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "", true},
		{"", "1.0.0", false},
		{"1.0.0.10", "1.0.0.9", true},
		{"1.0.0.9", "1.0.0.10", false},
	}
	for _, tt := range tests {
		if got := AtLeast(tt.installed, tt.required); got != tt.want {
			t.Errorf("AtLeast(%q, %q) = %v, want %v", tt.installed, tt.required, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, v := range []string{"v1.2.3", "1", "1.0.0.10"} {
		if !Valid(v) {
			t.Errorf("%q should be valid", v)
		}
	}
	for _, v := range []string{"dev", "1.0.0-beta", "v", "", "1.x"} {
		if Valid(v) {
			t.Errorf("%q should not be valid", v)
		}
	}
}

func TestLint(t *testing.T) {
	tests := []struct {
		v    string
		want string
	}{
		{"", ""},
		{"1.2.3", ""},
		{"1.0.0.4", ""},
		{"1.0.0-preview.3", "prerelease or build suffix"},
		{"1.0.0+build.7", "prerelease or build suffix"},
		{"latest", "not dotted-numeric"},
	}
	for _, tt := range tests {
		got := Lint(tt.v)
		if tt.want == "" {
			if got != "" {
				t.Errorf("Lint(%q) = %q, want empty", tt.v, got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("Lint(%q) = %q, want it to mention %q", tt.v, got, tt.want)
		}
	}
}
