// Package manager assembles the package-manager components from settings
// and tunables and exposes the operations an editor host drives: scan,
// fetch, resolve, execute, install and uninstall.
package manager
