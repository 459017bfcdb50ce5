package errors

// Convenience constructors for the pipeline taxonomy.

// FetchError reports that the batch listing could not be obtained. Fatal to the job.
func FetchError(message string) *ErrorBuilder {
	return NewError(CategoryFetch, message).Fatal()
}

// ParseError reports a missing or malformed metadata header.
func ParseError(message string) *ErrorBuilder {
	return NewError(CategoryParse, message)
}

// ValidationError reports a metadata schema violation.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message)
}

// CompileError reports a failed toolchain stage.
func CompileError(stage, message string) *ErrorBuilder {
	return NewError(CategoryCompile, message).WithContext("stage", stage)
}

// ReportError reports a failed status write. Fatal to the job.
func ReportError(message string) *ErrorBuilder {
	return NewError(CategoryReport, message).Fatal()
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// AuthError creates an authentication error.
func AuthError(message string) *ErrorBuilder {
	return NewError(CategoryAuth, message).UserAction()
}

// NetworkError creates a network error (typically retryable).
func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message).Retryable()
}

// TemplateError creates a template checkout error.
func TemplateError(message string) *ErrorBuilder {
	return NewError(CategoryTemplate, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// HistoryError creates a job history persistence error.
func HistoryError(message string) *ErrorBuilder {
	return NewError(CategoryHistory, message).Warning()
}

// DaemonError creates a daemon error.
func DaemonError(message string) *ErrorBuilder {
	return NewError(CategoryDaemon, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
