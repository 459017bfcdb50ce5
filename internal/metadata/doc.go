// Package metadata extracts the key/value header that prefixes each exported
// document and validates it against a declarative schema.
//
// Header lines are parsed leniently: list-item continuations (`- nom ...`) and
// nested contact lines (`email ...`) are re-indented and passed through, other
// lines split on their first colon, and lines without a colon are ignored.
package metadata
