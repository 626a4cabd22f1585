package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Toolchain errors

func ToolNotFound(tool string, cause error) *BuildError {
	return Wrap(cause, CategoryToolchain, SeverityFatal, "toolchain binary not found").
		WithContext("tool", tool)
}

// Stage errors. Tool failures are never retryable: the pipeline aborts on
// the first non-zero exit and surfaces the tool's own diagnostics.

func CompileFailed(app string, cause error) *BuildError {
	return Wrap(cause, CategoryCompile, SeverityFatal, "compile stage failed").
		WithContext("app", app)
}

func LinkFailed(app string, cause error) *BuildError {
	return Wrap(cause, CategoryLink, SeverityFatal, "link stage failed").
		WithContext("app", app)
}

func ExtractFailed(app string, cause error) *BuildError {
	return Wrap(cause, CategoryExtract, SeverityFatal, "extract stage failed").
		WithContext("app", app)
}

func InstallFailed(app, destination string, cause error) *BuildError {
	return Wrap(cause, CategoryInstall, SeverityFatal, "install stage failed").
		WithContext("app", app).
		WithContext("destination", destination)
}

// Filesystem / infrastructure errors

func WorkspaceError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func WatchError(operation string, cause error) *BuildError {
	return WrapRetryable(cause, CategoryWatch, SeverityWarning, "watch operation failed").
		WithContext("operation", operation)
}

func HistoryError(operation string, cause error) *BuildError {
	return WrapRetryable(cause, CategoryHistory, SeverityWarning, "history store operation failed").
		WithContext("operation", operation)
}

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
