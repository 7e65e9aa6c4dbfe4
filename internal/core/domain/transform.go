package domain

import (
	"path"
	"slices"
	"strings"
)

// StepInput selects what a TransformStep reads.
type StepInput uint8

const (
	// InputSource feeds the step the transform's resolved source items.
	InputSource StepInput = iota
	// InputPrevious feeds the step the output items of the step before it.
	InputPrevious
)

// Transform is a configured read, process and write unit over matched files.
type Transform struct {
	// Sources are glob patterns or literal paths. Entries prefixed with "!" exclude.
	Sources []string
	// Base is the directory item paths are made relative to.
	// When empty, the static prefix of the first source pattern is used.
	Base string
	// Required makes an empty match set a configuration error.
	Required bool
	// Steps run in order.
	Steps []TransformStep
}

// TransformStep is one processing stage of a Transform.
type TransformStep struct {
	Name  string
	Input StepInput
	// Processor is the registry key of the processor to apply. Empty passes items through.
	Processor string
	// Bundle concatenates all input items into one item with this name before processing.
	Bundle string
	Rename RenameRule
	// Dest is the directory outputs are written to. Empty means the step does not write.
	Dest string
}

// RenameRule rewrites an item's relative path.
type RenameRule struct {
	// Suffix is inserted before the extension, e.g. ".min".
	Suffix string
	// Ext replaces the extension, including the dot.
	Ext string
	// DropDir removes the first path segment equal to it, e.g. "dist".
	DropDir string
}

// IsZero reports whether the rule leaves paths unchanged.
func (r RenameRule) IsZero() bool {
	return r.Suffix == "" && r.Ext == "" && r.DropDir == ""
}

// Apply returns rel rewritten by the rule. rel uses forward slashes.
func (r RenameRule) Apply(rel string) string {
	dir, file := path.Split(rel)

	if r.DropDir != "" && dir != "" {
		segments := strings.Split(strings.TrimSuffix(dir, "/"), "/")
		if i := slices.Index(segments, r.DropDir); i >= 0 {
			segments = slices.Delete(segments, i, i+1)
		}
		dir = strings.Join(segments, "/")
		if dir != "" {
			dir += "/"
		}
	}

	ext := path.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	if r.Ext != "" {
		ext = r.Ext
	}

	return dir + stem + r.Suffix + ext
}

// Item is one file flowing through a transform.
type Item struct {
	// Source is the path the item was read from, or the bundle name for bundled items.
	Source string
	// Rel is the slash-separated path relative to the transform base.
	Rel     string
	Content []byte
}
