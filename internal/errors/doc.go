// Package errors provides the classified error type used across texsync.
//
// Every failure that crosses a component boundary is a ClassifiedError with a
// category, a severity, a retry strategy and a free-form context map. The job
// runner relies on the category to decide whether a failure is recovered per
// document (parse, validation, compile) or fatal to the job (fetch, report).
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryCompile, "xelatex failed").
//		WithContext("stage", "xelatex_second_pass").
//		WithCause(runErr).
//		Build()
package errors
