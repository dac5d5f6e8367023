// Package updater finds installed packages that the registry publishes in a
// newer version. The startup banner works from the cached registry listing
// only, so it never waits on the network.
package updater
