// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/processors"
	"go.trai.ch/kiln/internal/adapters/reload"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/dispatch"
	"go.trai.ch/kiln/internal/engine/taskgraph"
	"go.trai.ch/kiln/internal/engine/transform"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	paths        ports.PathResolver
	resolver     ports.SourceResolver
	hasher       ports.Hasher
	openStore    ports.DigestStoreOpener
	filter       processors.Filterer
	supervisor   ports.Supervisor
	newWatcher   ports.WatcherFactory
	tracer       ports.Tracer
	logger       ports.Logger

	workDir string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	paths ports.PathResolver,
	resolver ports.SourceResolver,
	hasher ports.Hasher,
	openStore ports.DigestStoreOpener,
	filter processors.Filterer,
	supervisor ports.Supervisor,
	newWatcher ports.WatcherFactory,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		paths:        paths,
		resolver:     resolver,
		hasher:       hasher,
		openStore:    openStore,
		filter:       filter,
		supervisor:   supervisor,
		newWatcher:   newWatcher,
		tracer:       tracer,
		logger:       log,
	}
}

// WithWorkDir sets the directory the configuration is searched from.
// It defaults to the process working directory.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// Options are the settings shared by every command.
type Options struct {
	// ConfigPath is an explicit config file. Empty means search upwards.
	ConfigPath string
	// AppName overrides the configured application name.
	AppName string
}

// SetJSON switches the logger to JSON output when it supports it.
func (a *App) SetJSON(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// session is everything a command needs once configuration is resolved.
type session struct {
	cfg      *domain.Config
	paths    *domain.PathSet
	pipeline *domain.Task
	runner   *taskgraph.Runner
}

// prepare loads and validates configuration and builds the task tree.
// Every configuration error surfaces here, before any task runs.
func (a *App) prepare(opts Options) (*session, error) {
	cwd := a.workDir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, zerr.Wrap(err, "failed to get working directory")
		}
	}

	cfg, err := a.configLoader.Load(cwd, opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if opts.AppName != "" {
		cfg.App = opts.AppName
	}

	ps, err := a.paths.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(filepath.Join(ps.Root, domain.DefaultDigestsPath()))
	if err != nil {
		return nil, err
	}

	registry := processors.NewDefaultRegistry(a.filter, cfg, ps)
	leaves := transform.NewRunner(ps.Root, a.resolver, registry, a.hasher, store, a.logger)
	runner := taskgraph.NewRunner(leaves, a.tracer)

	pipeline := Pipeline(ps)
	if err := runner.Validate(pipeline); err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		paths:    ps,
		pipeline: pipeline,
		runner:   runner,
	}, nil
}

// GenerateAssets builds every asset once.
func (a *App) GenerateAssets(ctx context.Context, opts Options) error {
	s, err := a.prepare(opts)
	if err != nil {
		return err
	}

	return a.generate(ctx, s)
}

func (a *App) generate(ctx context.Context, s *session) error {
	res := s.runner.Run(ctx, s.pipeline)
	if !res.OK() {
		a.logger.Error(res.Cause)
		return errors.Join(domain.ErrBuildExecutionFailed, res.Cause)
	}

	a.logger.Info(fmt.Sprintf("generated %d files, %d changed", len(res.Outputs), len(res.Changed)))
	return nil
}

// Dev builds every asset once, then watches sources, proxies the backend with
// live reload and supervises the backend process until ctx is cancelled.
// A failing initial build or a crashing backend does not end the session.
func (a *App) Dev(ctx context.Context, opts Options) error {
	s, err := a.prepare(opts)
	if err != nil {
		return err
	}

	// An interrupt lets the initial build finish. Failures are already
	// logged; the watcher gives a chance to fix them.
	_ = a.generate(context.WithoutCancel(ctx), s)

	broadcaster := reload.NewBroadcaster(a.logger)

	ps := s.paths
	dispatcher, err := dispatch.NewDispatcher(
		ps.Root,
		WatchBindings(ps, s.pipeline),
		a.resolver,
		s.runner,
		broadcaster,
		func(paths []string) domain.ReloadEvent { return reload.Classify(paths, ps) },
		a.logger,
		s.cfg.Debounce,
	)
	if err != nil {
		return err
	}

	proxy, err := reload.NewProxy(s.cfg.BackendAddress, broadcaster, a.logger)
	if err != nil {
		return err
	}

	fsWatcher, err := a.newWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = fsWatcher.Stop()
	}()

	g, ctx := errgroup.WithContext(ctx)

	if err := fsWatcher.Start(ctx, filepath.Join(ps.Root, filepath.FromSlash(ps.App))); err != nil {
		return zerr.Wrap(err, domain.ErrWatcherFailed.Error())
	}

	g.Go(func() error {
		return dispatcher.Run(ctx, fsWatcher.Events())
	})

	g.Go(func() error {
		a.logger.Info("proxy listening on http://" + s.cfg.ProxyAddress)
		return proxy.ListenAndServe(ctx, s.cfg.ProxyAddress)
	})

	g.Go(func() error {
		code, err := a.supervisor.Run(ctx, s.cfg.BackendCmd, s.cfg.BackendDir)
		if err != nil {
			a.logger.Error(err)
			return nil
		}
		a.logger.Info(fmt.Sprintf("backend exited with code %d", code))
		return nil
	})

	return g.Wait()
}
