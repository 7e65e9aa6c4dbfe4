package domain

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// WatchEvent represents a file system event from the watcher.
type WatchEvent struct {
	// Path is the path of the file or directory that changed.
	Path string
	// Operation is the type of change that occurred.
	Operation WatchOp
}

// WatchBinding maps source patterns to the task that must re-run when they change.
type WatchBinding struct {
	Name string
	// Patterns are globs; entries prefixed with "!" exclude.
	Patterns []string
	// Task re-runs on change. Nil means the binding only notifies.
	Task *Task
	// Reload sends a reload event to connected browsers after a successful run.
	Reload bool
}

// ReloadKind tags a ReloadEvent.
type ReloadKind uint8

const (
	// ReloadFull asks clients to reload the page.
	ReloadFull ReloadKind = iota
	// ReloadAssets asks clients to swap the listed stylesheets in place.
	ReloadAssets
)

// String returns the wire name of the kind.
func (k ReloadKind) String() string {
	if k == ReloadAssets {
		return "asset-update"
	}
	return "full-reload"
}

// ReloadEvent is broadcast to connected browser clients.
type ReloadEvent struct {
	Kind  ReloadKind
	Paths []string
}
