// Package job runs one synchronization job: it fetches the referenced
// documents, compiles each one and reports the outcome back to Notion, then
// aggregates everything into a single Report.
//
// A document that fails export, header parsing, validation or compilation is
// counted as a failure and the job moves on. Fetch, template and status write
// failures abort the job with an ERROR status.
package job
