package dispatch_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/reload"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/dispatch"
	"go.uber.org/mock/gomock"
)

const root = "/work"

// fakeRunner counts runs per task. When gate is set every run blocks until
// it receives from gate.
type fakeRunner struct {
	mu        sync.Mutex
	runs      map[string]int
	active    map[string]int
	maxActive map[string]int
	gate      chan struct{}
	result    func(task *domain.Task) domain.BuildResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		runs:      make(map[string]int),
		active:    make(map[string]int),
		maxActive: make(map[string]int),
	}
}

func (f *fakeRunner) Run(_ context.Context, task *domain.Task) domain.BuildResult {
	f.mu.Lock()
	f.runs[task.Name]++
	f.active[task.Name]++
	f.maxActive[task.Name] = max(f.maxActive[task.Name], f.active[task.Name])
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.active[task.Name]--
	f.mu.Unlock()

	if f.result != nil {
		return f.result(task)
	}
	return domain.Succeeded(task.Name)
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[name]
}

func (f *fakeRunner) peak(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive[name]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.ReloadEvent
}

func (n *fakeNotifier) Notify(ev domain.ReloadEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) all() []domain.ReloadEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events
}

func bindings() []domain.WatchBinding {
	return []domain.WatchBinding{
		{
			Name:     "styles",
			Patterns: []string{"app/static/scss/*.scss"},
			Task:     domain.Leaf("styles", &domain.Transform{}),
			Reload:   true,
		},
		{
			Name:     "templates",
			Patterns: []string{"app/templates/**/*.html"},
			Reload:   true,
		},
		{
			Name:     "scripts",
			Patterns: []string{"app/static/js/*.js", "!app/static/js/*.min.js"},
			Task:     domain.Leaf("scripts", &domain.Transform{}),
			Reload:   true,
		},
	}
}

type harness struct {
	runner   *fakeRunner
	notifier *fakeNotifier
	events   chan domain.WatchEvent
	cancel   context.CancelFunc
	errCh    chan error
}

func startDispatcher(t *testing.T, runner *fakeRunner, log *mocks.MockLogger) *harness {
	t.Helper()

	notifier := &fakeNotifier{}
	h := startWith(t, runner, notifier, log)
	h.runner = runner
	h.notifier = notifier
	return h
}

func startWith(t *testing.T, runner ports.TaskRunner, notifier ports.Notifier, log ports.Logger) *harness {
	t.Helper()

	ps := &domain.PathSet{Root: root, App: "app"}
	classify := func(paths []string) domain.ReloadEvent { return reload.Classify(paths, ps) }

	d, err := dispatch.NewDispatcher(
		root, bindings(), fs.NewResolver(fs.NewWalker()),
		runner, notifier, classify, log, 100*time.Millisecond,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	h := &harness{
		events: make(chan domain.WatchEvent),
		cancel: cancel,
		errCh:  make(chan error, 1),
	}

	go func() {
		h.errCh <- d.Run(ctx, seq(h.events))
	}()
	return h
}

func (h *harness) send(path string) {
	h.events <- domain.WatchEvent{Path: root + "/" + path, Operation: domain.OpWrite}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	close(h.events)
	require.NoError(t, <-h.errCh)
}

func seq(ch <-chan domain.WatchEvent) iter.Seq[domain.WatchEvent] {
	return func(yield func(domain.WatchEvent) bool) {
		for ev := range ch {
			if !yield(ev) {
				return
			}
		}
	}
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	return log
}

func TestDispatcher_DebounceCoalescesEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startDispatcher(t, newFakeRunner(), quietLogger(t))

		h.send("app/static/scss/app.scss")
		time.Sleep(30 * time.Millisecond)
		h.send("app/static/scss/icons.scss")
		time.Sleep(30 * time.Millisecond)
		h.send("app/static/scss/app.scss")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 1, h.runner.count("styles"))
		assert.Equal(t, 0, h.runner.count("scripts"))
		h.stop(t)
	})
}

func TestDispatcher_IgnoresUnmatchedPaths(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startDispatcher(t, newFakeRunner(), quietLogger(t))

		h.send("app/static/js/app.min.js")
		h.send("README.md")

		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 0, h.runner.count("scripts"))
		assert.Empty(t, h.notifier.all())
		h.stop(t)
	})
}

func TestDispatcher_QueuesOneRerunWhileRunning(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runner := newFakeRunner()
		runner.gate = make(chan struct{})
		h := startDispatcher(t, runner, quietLogger(t))

		h.send("app/static/js/app.js")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, 1, runner.count("scripts"))

		// Two separate bursts while the first run is still going.
		h.send("app/static/js/layout.js")
		time.Sleep(150 * time.Millisecond)
		h.send("app/static/js/config.js")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 1, runner.count("scripts"))

		runner.gate <- struct{}{}
		synctest.Wait()
		assert.Equal(t, 2, runner.count("scripts"))

		runner.gate <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 2, runner.count("scripts"))
		assert.Equal(t, 1, runner.peak("scripts"))
		h.stop(t)
	})
}

func TestDispatcher_BindingsRunIndependently(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runner := newFakeRunner()
		runner.gate = make(chan struct{})
		h := startDispatcher(t, runner, quietLogger(t))

		h.send("app/static/scss/app.scss")
		h.send("app/static/js/app.js")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		// Both are blocked inside the runner at the same time.
		assert.Equal(t, 1, runner.count("styles"))
		assert.Equal(t, 1, runner.count("scripts"))

		runner.gate <- struct{}{}
		runner.gate <- struct{}{}
		h.stop(t)
	})
}

func TestDispatcher_NotifiesAfterSuccessfulRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runner := newFakeRunner()
		runner.result = func(task *domain.Task) domain.BuildResult {
			res := domain.Succeeded(task.Name)
			switch task.Name {
			case "styles":
				res.Changed = []string{"app/static/css/app.css", "app/static/css/app.min.css"}
			case "scripts":
				res.Changed = []string{"app/static/js/app.min.js"}
			}
			return res
		}
		h := startDispatcher(t, runner, quietLogger(t))

		h.send("app/static/scss/app.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		h.send("app/static/js/app.js")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, []domain.ReloadEvent{
			{Kind: domain.ReloadAssets, Paths: []string{"/static/css/app.css", "/static/css/app.min.css"}},
			{Kind: domain.ReloadFull},
		}, h.notifier.all())
		h.stop(t)
	})
}

func TestDispatcher_NoNotifyWithoutChanges(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startDispatcher(t, newFakeRunner(), quietLogger(t))

		h.send("app/static/scss/app.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 1, h.runner.count("styles"))
		assert.Empty(t, h.notifier.all())
		h.stop(t)
	})
}

func TestDispatcher_FailedRunIsLoggedAndLoopContinues(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runner := newFakeRunner()
		runner.result = func(task *domain.Task) domain.BuildResult {
			return domain.Failed(task.Name, "compile", errors.New("syntax error"))
		}

		ctrl := gomock.NewController(t)
		log := mocks.NewMockLogger(ctrl)
		log.EXPECT().Info(gomock.Any()).AnyTimes()
		log.EXPECT().Error(gomock.Any()).Times(2)

		h := startDispatcher(t, runner, log)

		h.send("app/static/scss/app.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		h.send("app/static/scss/app.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 2, runner.count("styles"))
		assert.Empty(t, h.notifier.all())
		h.stop(t)
	})
}

func TestDispatcher_NotifiesChangesOfPartlyFailedRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockTaskRunner(ctrl)
		notifier := mocks.NewMockNotifier(ctrl)
		log := mocks.NewMockLogger(ctrl)

		log.EXPECT().Info(gomock.Any()).AnyTimes()
		log.EXPECT().Error(gomock.Any()).Times(1)

		// icons.scss failed; app.scss was still rewritten.
		runner.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, task *domain.Task) domain.BuildResult {
				res := domain.Failed(task.Name, "compile", errors.New(`expected "}"`))
				res.Changed = []string{"app/static/css/app.css", "app/static/css/app.min.css"}
				return res
			}).
			Times(1)
		notifier.EXPECT().
			Notify(domain.ReloadEvent{
				Kind:  domain.ReloadAssets,
				Paths: []string{"/static/css/app.css", "/static/css/app.min.css"},
			}).
			Times(1)

		h := startWith(t, runner, notifier, log)

		h.send("app/static/scss/icons.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		h.stop(t)
	})
}

func TestDispatcher_NotifyOnlyBinding(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startDispatcher(t, newFakeRunner(), quietLogger(t))

		h.send("app/templates/pages/index.html")
		h.send("app/templates/base.html")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, []domain.ReloadEvent{{Kind: domain.ReloadFull}}, h.notifier.all())
		h.stop(t)
	})
}

func TestDispatcher_CancelWaitsForRunningTask(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runner := newFakeRunner()
		runner.gate = make(chan struct{})
		h := startDispatcher(t, runner, quietLogger(t))

		h.send("app/static/scss/app.scss")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		h.cancel()
		close(h.events)
		synctest.Wait()

		select {
		case <-h.errCh:
			t.Fatal("Run returned while a task was still running")
		default:
		}

		runner.gate <- struct{}{}
		require.NoError(t, <-h.errCh)
	})
}

func TestNewDispatcher_InvalidPattern(t *testing.T) {
	_, err := dispatch.NewDispatcher(
		root,
		[]domain.WatchBinding{{Name: "bad", Patterns: []string{"js/[*.js"}}},
		fs.NewResolver(fs.NewWalker()),
		newFakeRunner(), &fakeNotifier{}, nil, nil, 0,
	)
	require.ErrorContains(t, err, domain.ErrInvalidPattern.Error())
}
