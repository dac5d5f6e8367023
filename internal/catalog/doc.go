// Package catalog builds the in-memory catalog of installed packages by
// scanning the configured install roots for manifest files. The first
// directory to declare a package name wins; later ones are reported as
// conflicts and never replace the kept entry.
package catalog
