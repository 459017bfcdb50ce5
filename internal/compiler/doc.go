// Package compiler turns a validated document into a PDF artifact.
//
// Compilation runs inside a per-document workspace slot: the template sources
// are staged, the document is written next to them, pandoc renders LaTeX and
// xelatex runs twice so cross references converge. The produced PDF and TeX
// files are then moved to the output directory under a title derived from the
// document metadata.
package compiler
