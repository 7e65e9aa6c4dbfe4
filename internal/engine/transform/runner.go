// Package transform runs a single Transform: it resolves sources, feeds items
// through the configured steps and writes outputs that changed.
package transform

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// readStep names the failure domain of reading source files.
const readStep = "read"

// Runner executes transforms against a workspace root.
type Runner struct {
	root     string
	resolver ports.SourceResolver
	registry ports.ProcessorRegistry
	hasher   ports.Hasher
	store    ports.DigestStore
	logger   ports.Logger
	limit    int
}

// NewRunner creates a Runner rooted at root. Item paths are resolved and
// written relative to it.
func NewRunner(
	root string,
	resolver ports.SourceResolver,
	registry ports.ProcessorRegistry,
	hasher ports.Hasher,
	store ports.DigestStore,
	logger ports.Logger,
) *Runner {
	return &Runner{
		root:     root,
		resolver: resolver,
		registry: registry,
		hasher:   hasher,
		store:    store,
		logger:   logger,
		limit:    runtime.NumCPU(),
	}
}

// stepOutput is what one item produced in a step.
type stepOutput struct {
	item    domain.Item
	written string
	changed bool
	failure *domain.ItemFailure
}

// Check reports configuration problems that would make t fail regardless of
// file contents: unknown processors and required sources that match nothing.
func (r *Runner) Check(t *domain.Transform) error {
	for _, step := range t.Steps {
		if step.Processor == "" {
			continue
		}
		if _, ok := r.registry.Lookup(step.Processor); !ok {
			return zerr.With(zerr.With(domain.ErrUnknownProcessor, "processor", step.Processor), "step", step.Name)
		}
	}

	items, err := r.resolver.Resolve(r.root, t.Sources, t.Base)
	if err != nil {
		return err
	}
	if t.Required && len(items) == 0 {
		return zerr.With(domain.ErrNoSourcesMatched, "sources", strings.Join(t.Sources, ", "))
	}
	return nil
}

// Run executes t on behalf of the task called name. Failing items are logged,
// recorded and dropped; the rest of the step continues. The result fails when
// any item failed or the transform could not run at all.
func (r *Runner) Run(ctx context.Context, name string, t *domain.Transform) domain.BuildResult {
	res := domain.Succeeded(name)

	items, err := r.resolver.Resolve(r.root, t.Sources, t.Base)
	if err != nil {
		return domain.Failed(name, readStep, err)
	}
	if t.Required && len(items) == 0 {
		return domain.Failed(name, readStep,
			zerr.With(domain.ErrNoSourcesMatched, "sources", strings.Join(t.Sources, ", ")))
	}

	sources := r.read(name, items, &res)
	prev := sources

	for _, step := range t.Steps {
		if err := ctx.Err(); err != nil {
			return r.finish(domain.Failed(name, step.Name, err), res)
		}

		input := prev
		if step.Input == domain.InputSource {
			input = sources
		}

		processor, err := r.lookup(step)
		if err != nil {
			return r.finish(domain.Failed(name, step.Name, err), res)
		}

		if step.Bundle != "" && len(input) > 0 {
			input = []domain.Item{bundle(step.Bundle, input)}
		}

		prev = r.runStep(ctx, name, step, processor, input, &res)
	}

	if err := ctx.Err(); err != nil {
		return r.finish(domain.Failed(name, "", err), res)
	}

	if len(res.Failures) > 0 {
		res.Step = res.Failures[0].Step
		res.Cause = zerr.With(domain.ErrItemFailed, "failed", len(res.Failures))
	}

	return r.finish(res, res)
}

// finish copies what was produced so far into out and persists the digests.
func (r *Runner) finish(out, produced domain.BuildResult) domain.BuildResult {
	out.Failures = produced.Failures
	out.Outputs = produced.Outputs
	out.Changed = produced.Changed

	if err := r.store.Save(); err != nil {
		r.logger.Warn(err.Error())
	}
	return out
}

func (r *Runner) lookup(step domain.TransformStep) (ports.Processor, error) {
	if step.Processor == "" {
		return nil, nil
	}
	p, ok := r.registry.Lookup(step.Processor)
	if !ok {
		return nil, zerr.With(domain.ErrUnknownProcessor, "processor", step.Processor)
	}
	return p, nil
}

// read loads source contents. Unreadable files become item failures.
func (r *Runner) read(name string, items []domain.Item, res *domain.BuildResult) []domain.Item {
	loaded := make([]domain.Item, 0, len(items))
	for _, item := range items {
		//nolint:gosec // Source paths come from the resolver, below root
		content, err := os.ReadFile(r.abs(item.Source))
		if err != nil {
			r.fail(name, res, domain.ItemFailure{
				Step: readStep,
				Item: item.Source,
				Err:  zerr.With(zerr.Wrap(err, domain.ErrReadSourceFailed.Error()), "path", item.Source),
			})
			continue
		}
		item.Content = content
		loaded = append(loaded, item)
	}
	return loaded
}

// runStep processes input concurrently, keeping input order in the output.
func (r *Runner) runStep(
	ctx context.Context,
	name string,
	step domain.TransformStep,
	processor ports.Processor,
	input []domain.Item,
	res *domain.BuildResult,
) []domain.Item {
	outputs := make([]stepOutput, len(input))

	var g errgroup.Group
	g.SetLimit(r.limit)

	for i, item := range input {
		g.Go(func() error {
			outputs[i] = r.processItem(ctx, step, processor, item)
			return nil
		})
	}
	_ = g.Wait()

	next := make([]domain.Item, 0, len(input))
	for _, out := range outputs {
		if out.failure != nil {
			r.fail(name, res, *out.failure)
			continue
		}
		if out.written != "" {
			res.Outputs = append(res.Outputs, out.written)
			if out.changed {
				res.Changed = append(res.Changed, out.written)
			}
		}
		next = append(next, out.item)
	}
	return next
}

func (r *Runner) processItem(
	ctx context.Context,
	step domain.TransformStep,
	processor ports.Processor,
	item domain.Item,
) stepOutput {
	failed := func(err error) stepOutput {
		return stepOutput{failure: &domain.ItemFailure{Step: step.Name, Item: item.Source, Err: err}}
	}

	out := item
	if processor != nil {
		var err error
		out, err = processor.Process(ctx, item)
		if err != nil {
			return failed(err)
		}
	}
	out.Rel = step.Rename.Apply(out.Rel)

	if step.Dest == "" {
		return stepOutput{item: out}
	}

	target, err := destination(step.Dest, out.Rel)
	if err != nil {
		return failed(err)
	}

	changed, err := r.write(target, out.Content)
	if err != nil {
		return failed(err)
	}

	return stepOutput{item: out, written: target, changed: changed}
}

// fail records and logs an item failure.
func (r *Runner) fail(name string, res *domain.BuildResult, f domain.ItemFailure) {
	res.Failures = append(res.Failures, f)
	r.logger.Warn(name + ": " + f.Item + ": " + f.Err.Error())
}

// destination joins dest and rel, refusing paths that leave dest.
func destination(dest, rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", zerr.With(zerr.With(domain.ErrOutputPathOutsideDest, "dest", dest), "path", rel)
	}
	return path.Join(path.Clean(filepath.ToSlash(dest)), clean), nil
}

// write stores content at the root-relative target unless the file already
// holds exactly those bytes. It reports whether the file changed.
func (r *Runner) write(target string, content []byte) (bool, error) {
	abs := r.abs(target)
	sum := r.hasher.HashBytes(content)

	info, statErr := os.Stat(abs)
	if statErr == nil {
		if d, ok := r.store.Lookup(target); ok &&
			d.Sum == sum && d.Size == info.Size() && d.ModTime.Equal(info.ModTime()) {
			return false, nil
		}

		//nolint:gosec // Target is validated to stay below its destination
		existing, err := os.ReadFile(abs)
		if err == nil && bytes.Equal(existing, content) {
			r.store.Record(target, ports.Digest{Sum: sum, Size: info.Size(), ModTime: info.ModTime()})
			return false, nil
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return false, zerr.With(zerr.Wrap(statErr, domain.ErrWriteOutputFailed.Error()), "path", target)
	}

	if err := os.MkdirAll(filepath.Dir(abs), domain.DirPerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrWriteOutputFailed.Error()), "path", target)
	}
	if err := os.WriteFile(abs, content, domain.FilePerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrWriteOutputFailed.Error()), "path", target)
	}

	if info, err := os.Stat(abs); err == nil {
		r.store.Record(target, ports.Digest{Sum: sum, Size: info.Size(), ModTime: info.ModTime()})
	}
	return true, nil
}

func (r *Runner) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// bundle concatenates items in order, separated by newlines.
func bundle(name string, items []domain.Item) domain.Item {
	parts := make([][]byte, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Content)
	}
	return domain.Item{
		Source:  name,
		Rel:     name,
		Content: bytes.Join(parts, []byte("\n")),
	}
}

