// Package installer executes install plans. Items run strictly in order:
// each package's branch archive is downloaded, extracted, its content
// folder located and reconciled into the install path before the next item
// starts. The first failure stops the run; items already installed stay.
package installer
