package compiler

import "errors"

var (
	// ErrBinaryNotFound indicates a toolchain executable was not detected on PATH.
	ErrBinaryNotFound = errors.New("toolchain binary not found")
	// ErrToolFailed indicates a toolchain process exited non-zero.
	ErrToolFailed = errors.New("toolchain process failed")
	// ErrTemplateMissing indicates the pandoc template is absent from the staged sources.
	ErrTemplateMissing = errors.New("pandoc template missing")
	// ErrMissingAsset indicates the document references a local image that was not exported.
	ErrMissingAsset = errors.New("referenced asset missing")
	// ErrArtifactMissing indicates xelatex reported success but no PDF was produced.
	ErrArtifactMissing = errors.New("pdf artifact missing")
	// ErrEmptyArtifact indicates the produced PDF has no pages.
	ErrEmptyArtifact = errors.New("pdf artifact has no pages")
	// ErrIncompleteMetadata indicates a title field is missing or normalizes to nothing.
	ErrIncompleteMetadata = errors.New("metadata incomplete for title derivation")
)
