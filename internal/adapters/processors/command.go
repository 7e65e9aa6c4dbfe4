package processors

import (
	"context"
	"path"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

// CommandProcessor pipes each item through an external command.
type CommandProcessor struct {
	runner  Filterer
	command []string
	dir     string
}

// NewCommandProcessor creates a processor running command in dir.
func NewCommandProcessor(runner Filterer, command []string, dir string) *CommandProcessor {
	return &CommandProcessor{runner: runner, command: command, dir: dir}
}

// Process implements ports.Processor.
func (p *CommandProcessor) Process(ctx context.Context, item domain.Item) (domain.Item, error) {
	out, err := p.runner.Filter(ctx, p.command, p.dir, item.Content)
	if err != nil {
		return domain.Item{}, err
	}
	item.Content = out
	return item, nil
}

// tildeImport matches the quote that opens a "~"-prefixed module import.
var tildeImport = regexp.MustCompile(`(["'])~`)

// SassProcessor compiles SCSS through the sass command line compiler.
// Imports of the form "~package/file" are resolved against the vendor root.
type SassProcessor struct {
	runner  Filterer
	command []string
	dir     string
}

// NewSassProcessor creates a Sass processor. loadPaths are passed to the
// compiler so partials and vendor packages resolve from stdin input.
func NewSassProcessor(runner Filterer, command []string, dir string, loadPaths []string) *SassProcessor {
	cmd := slices.Clone(command)
	for _, lp := range loadPaths {
		cmd = append(cmd, "--load-path="+lp)
	}
	return &SassProcessor{runner: runner, command: cmd, dir: dir}
}

// Process implements ports.Processor. The output item has a .css extension.
func (p *SassProcessor) Process(ctx context.Context, item domain.Item) (domain.Item, error) {
	out, err := p.runner.Filter(ctx, p.command, p.dir, RewriteTildeImports(item.Content))
	if err != nil {
		return domain.Item{}, err
	}
	item.Content = out
	item.Rel = strings.TrimSuffix(item.Rel, path.Ext(item.Rel)) + ".css"
	return item, nil
}

// RewriteTildeImports strips the "~" prefix from module paths in
// @import, @use and @forward rules.
func RewriteTildeImports(src []byte) []byte {
	lines := strings.SplitAfter(string(src), "\n")
	changed := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "@import") &&
			!strings.HasPrefix(trimmed, "@use") &&
			!strings.HasPrefix(trimmed, "@forward") {
			continue
		}
		rewritten := tildeImport.ReplaceAllString(line, "$1")
		if rewritten != line {
			lines[i] = rewritten
			changed = true
		}
	}
	if !changed {
		return src
	}
	return []byte(strings.Join(lines, ""))
}
