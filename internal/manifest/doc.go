// Package manifest defines the extension manifest (extension.json) and
// provides parsing, atomic writing and JSON-schema validation. Parsing
// returns either a *Manifest or a *ParseError; callers branch on the error
// with errors.As instead of receiving a nil manifest.
package manifest
