package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
	"github.com/JakeFAU/profile-image-resolver/internal/config"
	"github.com/JakeFAU/profile-image-resolver/internal/render"
	"github.com/JakeFAU/profile-image-resolver/internal/results"
	"github.com/JakeFAU/profile-image-resolver/internal/snapshot"
)

func staticConfig() config.Config {
	return config.Config{
		Browser: config.BrowserConfig{
			Engine:            config.EngineStatic,
			NavigationTimeout: time.Second,
		},
		Extract: config.ExtractConfig{ImagePrefix: avatar.DefaultImagePrefix},
	}
}

func TestNewStaticEngine(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), staticConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &render.Static{}, a.Renderer())
	assert.NotNil(t, a.Resolver())
	assert.Nil(t, a.Snapshots())
	assert.NoError(t, a.Ready(context.Background()))

	multi, ok := a.Recorder().(results.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 1)
}

func TestNewSnapshotBackends(t *testing.T) {
	t.Parallel()

	cfg := staticConfig()
	cfg.Snapshots = config.SnapshotsConfig{Backend: config.SnapshotLocal, BaseDir: filepath.Join(t.TempDir(), "snaps"), Prefix: "s"}
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.IsType(t, &snapshot.Writer{}, a.Snapshots())

	cfg.Snapshots = config.SnapshotsConfig{Backend: config.SnapshotMemory}
	b, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	assert.NotNil(t, b.Snapshots())

	cfg.Snapshots = config.SnapshotsConfig{Backend: "ftp"}
	_, err = New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewBadPostgresDSN(t *testing.T) {
	t.Parallel()

	cfg := staticConfig()
	cfg.Results.Postgres = config.PostgresConfig{DSN: "postgres://localhost/db", Table: "bad name"}
	_, err := New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "init results store")
}

func TestCloseRunsInReverse(t *testing.T) {
	t.Parallel()

	var order []int
	a := &App{logger: zap.NewNop()}
	a.closers = []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return assert.AnError },
	}
	a.Close()
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}

func TestReadyWithoutRenderer(t *testing.T) {
	t.Parallel()

	require.Error(t, (&App{}).Ready(context.Background()))
}
