// Package platform provides cross-platform filesystem helpers: permission
// changes that are no-ops on Windows, and removal that clears read-only bits
// before retrying.
package platform
