// Package resolver turns a root manifest's declared dependencies into an
// install plan. The graph is walked breadth first through registry
// manifests; every name is visited at most once, so cyclic declarations
// terminate and each package appears in the plan at most once.
package resolver
