// Package status writes per-document outcome annotations back to the Notion
// block that referenced the document.
package status
