package domain

import "go.trai.ch/zerr"

var (
	// ErrMissingAppName is returned when no application name is configured or discoverable.
	ErrMissingAppName = zerr.New("missing application name")

	// ErrAppLayoutMissing is returned when the application directory lacks the expected static layout.
	ErrAppLayoutMissing = zerr.New("application directory layout not found")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrDuplicateTaskName is returned when two tasks in one pipeline share a name.
	ErrDuplicateTaskName = zerr.New("duplicate task name")

	// ErrEmptyTask is returned when a leaf has no transform or a composite has no children.
	ErrEmptyTask = zerr.New("task has nothing to run")

	// ErrNoSourcesMatched is returned when a required source pattern matches nothing.
	ErrNoSourcesMatched = zerr.New("no source files matched")

	// ErrInvalidPattern is returned when a source or watch pattern cannot be compiled.
	ErrInvalidPattern = zerr.New("invalid glob pattern")

	// ErrUnknownProcessor is returned when a transform step names a processor that is not registered.
	ErrUnknownProcessor = zerr.New("unknown processor")

	// ErrItemFailed is returned when at least one item of a transform failed to process.
	ErrItemFailed = zerr.New("one or more items failed")

	// ErrProcessFailed is returned when an external processor command fails.
	ErrProcessFailed = zerr.New("processor command failed")

	// ErrReadSourceFailed is returned when a source file cannot be read.
	ErrReadSourceFailed = zerr.New("failed to read source file")

	// ErrWriteOutputFailed is returned when an output file cannot be written.
	ErrWriteOutputFailed = zerr.New("failed to write output file")

	// ErrOutputPathOutsideDest is returned when a renamed item would escape its destination directory.
	ErrOutputPathOutsideDest = zerr.New("output path is outside destination directory")

	// ErrStoreReadFailed is returned when the digest manifest cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read digest manifest")

	// ErrStoreWriteFailed is returned when the digest manifest cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write digest manifest")

	// ErrBuildExecutionFailed is returned when a pipeline run ends with a failed task.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a single task fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrBackendStartFailed is returned when the backend process cannot be started.
	ErrBackendStartFailed = zerr.New("failed to start backend process")

	// ErrBackendExited is returned when the backend process exits with a non-zero code.
	ErrBackendExited = zerr.New("backend process exited")

	// ErrProxyFailed is returned when the reload proxy cannot serve.
	ErrProxyFailed = zerr.New("reload proxy failed")

	// ErrWatcherFailed is returned when the filesystem watcher cannot start.
	ErrWatcherFailed = zerr.New("failed to start file watcher")
)
