// Package registry is the remote package registry: a hosted repository
// whose file tree holds one manifest per top-level package folder. The
// Client lists the tree, reuses cached manifests whose content hash is
// unchanged, downloads the rest concurrently and persists the merged set
// through a CacheStore. Fresh snapshots are served from memory for a TTL;
// otherwise the cached set is returned immediately while a refresh runs.
package registry
