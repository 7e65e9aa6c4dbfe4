// Package taskgraph executes task trees: leaves run a transform, parallel
// groups join on all children and series groups stop at the first failure.
package taskgraph

import (
	"context"
	"errors"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.TaskRunner = (*Runner)(nil)

// LeafRunner executes the transform of a leaf task.
type LeafRunner interface {
	Run(ctx context.Context, name string, t *domain.Transform) domain.BuildResult
	// Check reports configuration errors in t without running it.
	Check(t *domain.Transform) error
}

// Runner implements ports.TaskRunner.
type Runner struct {
	leaf   LeafRunner
	tracer ports.Tracer
}

// NewRunner creates a Runner.
func NewRunner(leaf LeafRunner, tracer ports.Tracer) *Runner {
	return &Runner{leaf: leaf, tracer: tracer}
}

// Validate checks the whole tree before anything runs: task names are
// unique, leaves have a transform, groups have children and every leaf's
// transform passes the leaf runner's checks.
func (r *Runner) Validate(task *domain.Task) error {
	seen := make(map[string]bool)
	var err error

	task.Walk(func(t *domain.Task) bool {
		if err != nil {
			return false
		}
		if seen[t.Name] {
			err = zerr.With(domain.ErrDuplicateTaskName, "task", t.Name)
			return false
		}
		seen[t.Name] = true

		switch t.Kind {
		case domain.KindLeaf:
			if t.Transform == nil {
				err = zerr.With(domain.ErrEmptyTask, "task", t.Name)
				return false
			}
			if checkErr := r.leaf.Check(t.Transform); checkErr != nil {
				err = zerr.With(zerr.Wrap(checkErr, domain.ErrInvalidConfig.Error()), "task", t.Name)
				return false
			}
		case domain.KindParallel, domain.KindSeries:
			if len(t.Children) == 0 {
				err = zerr.With(domain.ErrEmptyTask, "task", t.Name)
				return false
			}
		}
		return true
	})

	return err
}

// Run executes task and everything below it.
func (r *Runner) Run(ctx context.Context, task *domain.Task) domain.BuildResult {
	ctx, span := r.tracer.Start(ctx, task.Name)
	defer span.End()
	span.SetAttribute("kiln.task.kind", task.Kind.String())

	var res domain.BuildResult
	switch task.Kind {
	case domain.KindParallel:
		res = r.runParallel(ctx, task)
	case domain.KindSeries:
		res = r.runSeries(ctx, task)
	default:
		res = r.runLeaf(ctx, task)
	}

	if !res.OK() {
		span.RecordError(res.Cause)
	}
	return res
}

func (r *Runner) runLeaf(ctx context.Context, task *domain.Task) domain.BuildResult {
	if task.Transform == nil {
		return domain.Failed(task.Name, "", zerr.With(domain.ErrEmptyTask, "task", task.Name))
	}

	res := r.leaf.Run(ctx, task.Name, task.Transform)
	if !res.OK() {
		res.Cause = zerr.With(zerr.Wrap(res.Cause, domain.ErrTaskExecutionFailed.Error()), "task", task.Name)
	}
	return res
}

// runParallel starts every child at once and waits for all of them. A
// failing child never cancels its siblings.
func (r *Runner) runParallel(ctx context.Context, task *domain.Task) domain.BuildResult {
	results := make([]domain.BuildResult, len(task.Children))

	var g errgroup.Group
	for i, child := range task.Children {
		g.Go(func() error {
			results[i] = r.Run(ctx, child)
			return nil
		})
	}
	_ = g.Wait()

	out := domain.Succeeded(task.Name)
	var causes []error
	for _, res := range results {
		merge(&out, res)
		if res.OK() {
			continue
		}
		if len(causes) == 0 {
			out.Task = res.Task
			out.Step = res.Step
		}
		causes = append(causes, res.Cause)
	}
	out.Cause = errors.Join(causes...)
	return out
}

// runSeries runs children in order and stops at the first failure, which
// becomes the group's result.
func (r *Runner) runSeries(ctx context.Context, task *domain.Task) domain.BuildResult {
	out := domain.Succeeded(task.Name)

	for _, child := range task.Children {
		if err := ctx.Err(); err != nil {
			out.Cause = err
			return out
		}

		res := r.Run(ctx, child)
		merge(&out, res)
		if !res.OK() {
			out.Task = res.Task
			out.Step = res.Step
			out.Cause = res.Cause
			return out
		}
	}
	return out
}

func merge(dst *domain.BuildResult, src domain.BuildResult) {
	dst.Failures = append(dst.Failures, src.Failures...)
	dst.Outputs = append(dst.Outputs, src.Outputs...)
	dst.Changed = append(dst.Changed, src.Changed...)
}
