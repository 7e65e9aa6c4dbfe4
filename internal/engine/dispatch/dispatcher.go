// Package dispatch turns filesystem events into task runs for the dev loop.
package dispatch

import (
	"context"
	"iter"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Classifier turns changed root-relative paths into a reload event.
type Classifier func(paths []string) domain.ReloadEvent

// binding is a WatchBinding with its patterns compiled.
type binding struct {
	domain.WatchBinding
	match ports.Matcher
}

// fired is a debounced batch of changes for one binding.
type fired struct {
	idx   int
	paths []string
}

// finished is the outcome of one binding run.
type finished struct {
	idx int
	res domain.BuildResult
}

// bindingState tracks one binding inside the dispatch loop.
type bindingState struct {
	running bool
	queued  []string
}

// Dispatcher coordinates watch bindings. Each binding re-runs its task after
// its debounce window; a binding never runs concurrently with itself, changes
// arriving mid-run queue exactly one follow-up run, and different bindings
// run independently.
type Dispatcher struct {
	root     string
	bindings []binding
	runner   ports.TaskRunner
	notifier ports.Notifier
	classify Classifier
	logger   ports.Logger
	window   time.Duration
}

// NewDispatcher compiles the binding patterns relative to root.
func NewDispatcher(
	root string,
	bindings []domain.WatchBinding,
	resolver ports.SourceResolver,
	runner ports.TaskRunner,
	notifier ports.Notifier,
	classify Classifier,
	logger ports.Logger,
	window time.Duration,
) (*Dispatcher, error) {
	compiled := make([]binding, 0, len(bindings))
	for _, b := range bindings {
		match, err := resolver.Matcher(root, b.Patterns)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, binding{WatchBinding: b, match: match})
	}

	if window <= 0 {
		window = domain.DefaultDebounce
	}

	return &Dispatcher{
		root:     root,
		bindings: compiled,
		runner:   runner,
		notifier: notifier,
		classify: classify,
		logger:   logger,
		window:   window,
	}, nil
}

// Run consumes events until ctx is cancelled. On cancellation it stops
// accepting events and waits for running tasks to finish.
func (d *Dispatcher) Run(ctx context.Context, events iter.Seq[domain.WatchEvent]) error {
	firedCh := make(chan fired)
	doneCh := make(chan finished)

	debouncers := make([]*Debouncer, len(d.bindings))
	for i := range d.bindings {
		debouncers[i] = NewDebouncer(d.window, func(paths []string) {
			select {
			case firedCh <- fired{idx: i, paths: paths}:
			case <-ctx.Done():
			}
		})
	}
	defer func() {
		for _, deb := range debouncers {
			deb.Stop()
		}
	}()

	eventCh := forward(ctx, events)
	states := make([]bindingState, len(d.bindings))
	active := 0

	// Cancellation does not interrupt a run; Run waits for it instead.
	runCtx := context.WithoutCancel(ctx)

	start := func(idx int, paths []string) {
		b := d.bindings[idx]
		states[idx].running = true
		active++
		d.logger.Info(b.Name + ": " + describe(paths))

		go func() {
			doneCh <- finished{idx: idx, res: d.runner.Run(runCtx, b.Task)}
		}()
	}

	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			rel := d.relative(ev.Path)
			for i, b := range d.bindings {
				if b.match(ev.Path) {
					debouncers[i].Add(rel)
				}
			}

		case f := <-firedCh:
			b := d.bindings[f.idx]
			if b.Task == nil {
				if b.Reload {
					d.notifier.Notify(d.classify(f.paths))
				}
				continue
			}
			st := &states[f.idx]
			if st.running {
				st.queued = mergePaths(st.queued, f.paths)
				continue
			}
			start(f.idx, f.paths)

		case done := <-doneCh:
			active--
			st := &states[done.idx]
			st.running = false
			d.report(d.bindings[done.idx].WatchBinding, done.res)

			if len(st.queued) > 0 && ctx.Err() == nil {
				paths := st.queued
				st.queued = nil
				start(done.idx, paths)
			}

		case <-ctx.Done():
			for active > 0 {
				done := <-doneCh
				active--
				d.report(d.bindings[done.idx].WatchBinding, done.res)
			}
			return nil
		}
	}
}

// report logs a failed run and notifies browsers about any output the run
// changed. A run with failed items can still have rewritten its siblings.
func (d *Dispatcher) report(b domain.WatchBinding, res domain.BuildResult) {
	if !res.OK() {
		d.logger.Error(res.Cause)
	}
	if b.Reload && len(res.Changed) > 0 {
		d.notifier.Notify(d.classify(res.Changed))
	}
}

// relative returns path relative to the dispatcher root with forward slashes.
func (d *Dispatcher) relative(path string) string {
	if rel, err := filepath.Rel(d.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// forward copies events into a channel until they end or ctx is cancelled.
func forward(ctx context.Context, events iter.Seq[domain.WatchEvent]) <-chan domain.WatchEvent {
	ch := make(chan domain.WatchEvent)
	go func() {
		defer close(ch)
		for ev := range events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func mergePaths(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func describe(paths []string) string {
	if len(paths) == 1 {
		return paths[0] + " changed"
	}
	return strconv.Itoa(len(paths)) + " files changed"
}
