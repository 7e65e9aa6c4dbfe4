package domain

import "fmt"

// ItemFailure records one item that failed inside a transform step.
type ItemFailure struct {
	Step string
	Item string
	Err  error
}

// Error implements error.
func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Step, f.Item, f.Err)
}

// Unwrap returns the underlying cause.
func (f ItemFailure) Unwrap() error {
	return f.Err
}

// BuildResult is the outcome of running a task.
// A nil Cause means success.
type BuildResult struct {
	// Task is the name of the task that produced this result, or of the
	// failing descendant for a failed composite.
	Task string
	// Step is the transform step that failed, if any.
	Step  string
	Cause error

	Failures []ItemFailure
	// Outputs are all files written or confirmed by the run.
	Outputs []string
	// Changed are the outputs whose content differs from what was on disk.
	Changed []string
}

// OK reports whether the run succeeded.
func (r BuildResult) OK() bool {
	return r.Cause == nil
}

// Succeeded returns a successful result for task.
func Succeeded(task string) BuildResult {
	return BuildResult{Task: task}
}

// Failed returns a failed result for task at step.
func Failed(task, step string, cause error) BuildResult {
	return BuildResult{Task: task, Step: step, Cause: cause}
}
