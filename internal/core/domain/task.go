package domain

// Kind is the execution shape of a task.
type Kind uint8

const (
	// KindLeaf wraps a single Transform.
	KindLeaf Kind = iota
	// KindParallel runs its children concurrently and joins on all of them.
	KindParallel
	// KindSeries runs its children one after another, stopping at the first failure.
	KindSeries
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindParallel:
		return "parallel"
	case KindSeries:
		return "series"
	default:
		return "unknown"
	}
}

// Task is a named unit of build work.
// Composite tasks can only be built from already constructed children,
// so the task graph is always a tree.
type Task struct {
	Name      string
	Kind      Kind
	Transform *Transform
	Children  []*Task
}

// Leaf creates a task that runs the given transform.
func Leaf(name string, t *Transform) *Task {
	return &Task{Name: name, Kind: KindLeaf, Transform: t}
}

// Parallel creates a task that runs children concurrently.
func Parallel(name string, children ...*Task) *Task {
	return &Task{Name: name, Kind: KindParallel, Children: children}
}

// Series creates a task that runs children in order.
func Series(name string, children ...*Task) *Task {
	return &Task{Name: name, Kind: KindSeries, Children: children}
}

// Walk calls fn for the task and all of its descendants, parents first.
func (t *Task) Walk(fn func(*Task) bool) {
	if !fn(t) {
		return
	}
	for _, child := range t.Children {
		child.Walk(fn)
	}
}

// Find returns the descendant (or the task itself) with the given name.
func (t *Task) Find(name string) (*Task, bool) {
	var found *Task
	t.Walk(func(c *Task) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}
