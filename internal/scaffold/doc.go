// Package scaffold generates the skeleton of a new extension package from
// embedded templates.
package scaffold
