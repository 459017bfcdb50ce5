// Package workspace manages scratch directories for synchronization jobs.
//
// A Manager owns one timestamped job directory (e.g. texsync-20251214-122336-xyz).
// Each document is compiled inside its own Slot beneath it: the slot is created
// fresh, receives a copy of the template sources and the exported document, and
// is removed when released regardless of the compilation outcome.
package workspace
