// Package userdata resolves the on-disk layout under ~/.extpm/: the
// extensions and core install roots, the platform package cache, the
// registry cache file and the tool's own package directory.
package userdata
