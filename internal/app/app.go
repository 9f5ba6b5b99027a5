// Package app builds the long-lived services a resolve run needs and shuts
// them down afterwards.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
	"github.com/JakeFAU/profile-image-resolver/internal/batch"
	"github.com/JakeFAU/profile-image-resolver/internal/config"
	"github.com/JakeFAU/profile-image-resolver/internal/render"
	"github.com/JakeFAU/profile-image-resolver/internal/results"
	pgresults "github.com/JakeFAU/profile-image-resolver/internal/results/postgres"
	psresults "github.com/JakeFAU/profile-image-resolver/internal/results/pubsub"
	"github.com/JakeFAU/profile-image-resolver/internal/snapshot"
	"github.com/JakeFAU/profile-image-resolver/internal/snapshot/gcs"
	"github.com/JakeFAU/profile-image-resolver/internal/snapshot/local"
	"github.com/JakeFAU/profile-image-resolver/internal/snapshot/memory"
)

// renderCloser is a renderer with a lifecycle.
type renderCloser interface {
	batch.Renderer
	Close() error
}

// App holds the services shared by one command invocation.
type App struct {
	logger    *zap.Logger
	renderer  renderCloser
	resolver  *avatar.Resolver
	snapshots batch.SnapshotWriter
	recorder  results.Recorder
	closers   []func() error
}

// New initializes every service the configuration enables. It fails fast and
// releases whatever was already opened when a service cannot start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		logger:   logger,
		resolver: avatar.New(avatar.Options{ImagePrefix: cfg.Extract.ImagePrefix}),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.initRenderer(cfg); err != nil {
		return nil, err
	}
	if err := a.initSnapshots(ctx, cfg.Snapshots); err != nil {
		return nil, err
	}
	if err := a.initRecorders(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Info("services initialized",
		zap.String("engine", cfg.Browser.Engine),
		zap.String("snapshots", cfg.Snapshots.Backend),
	)
	return a, nil
}

func (a *App) initRenderer(cfg config.Config) error {
	switch cfg.Browser.Engine {
	case config.EngineStatic:
		a.renderer = render.NewStatic(cfg.StaticConfig())
	default:
		r, err := render.NewChromedp(cfg.ChromedpConfig(), a.logger)
		if err != nil {
			return fmt.Errorf("start browser: %w", err)
		}
		a.renderer = r
	}
	a.closers = append(a.closers, a.renderer.Close)
	return nil
}

func (a *App) initSnapshots(ctx context.Context, cfg config.SnapshotsConfig) error {
	var store snapshot.BlobStore
	switch cfg.Backend {
	case "":
		return nil
	case config.SnapshotMemory:
		store = memory.NewBlobStore()
	case config.SnapshotLocal:
		s, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return fmt.Errorf("init local snapshots: %w", err)
		}
		store = s
	case config.SnapshotGCS:
		s, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return fmt.Errorf("init gcs snapshots: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		store = s
	default:
		return fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
	w, err := snapshot.NewWriter(store, cfg.Prefix)
	if err != nil {
		return fmt.Errorf("init snapshot writer: %w", err)
	}
	a.snapshots = w
	return nil
}

func (a *App) initRecorders(ctx context.Context, cfg config.Config) error {
	recorders := results.Multi{results.LogRecorder{Logger: a.logger}}

	if pg := cfg.Results.Postgres; pg.DSN != "" {
		store, err := pgresults.New(ctx, pgresults.Config{
			DSN:      pg.DSN,
			Table:    pg.Table,
			MaxConns: pg.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("init results store: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		recorders = append(recorders, store)
	}

	if cfg.Publish.Topic != "" {
		pub, err := psresults.Open(ctx, psresults.Config{
			ProjectID: cfg.Publish.ProjectID,
			TopicID:   cfg.Publish.Topic,
		})
		if err != nil {
			return fmt.Errorf("init results publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		recorders = append(recorders, pub)
	}

	a.recorder = recorders
	return nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Renderer returns the configured page renderer.
func (a *App) Renderer() batch.Renderer { return a.renderer }

// Resolver returns the extraction pipeline.
func (a *App) Resolver() batch.Resolver { return a.resolver }

// Snapshots returns the snapshot writer, or nil when snapshots are disabled.
func (a *App) Snapshots() batch.SnapshotWriter { return a.snapshots }

// Recorder returns the fan-out of configured result recorders.
func (a *App) Recorder() results.Recorder { return a.recorder }

// Ready reports whether the renderer is available.
func (a *App) Ready(context.Context) error {
	if a.renderer == nil {
		return errors.New("renderer not initialized")
	}
	return nil
}

// Close releases services in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
