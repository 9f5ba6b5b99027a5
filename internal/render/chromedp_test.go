package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

func TestNewChromedpRequiresTabs(t *testing.T) {
	t.Parallel()

	r, err := NewChromedp(Config{MaxTabs: 0}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, r)
}

func TestAllocatorOptionsIncludeOverrides(t *testing.T) {
	t.Parallel()

	base := len(allocatorOptions(Config{}))
	withAll := len(allocatorOptions(Config{
		ChromePath:   "/usr/bin/chromium",
		UserAgent:    "ua",
		WindowWidth:  1280,
		WindowHeight: 900,
	}))
	assert.Equal(t, base+3, withAll)
}

func TestPacerUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	p := newPacer(0)
	for i := 0; i < 10; i++ {
		assert.True(t, p.Allow())
	}
	limited := newPacer(1)
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}

func TestScrollDistanceDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 300, (&Chromedp{}).scrollDistance())
	assert.Equal(t, 120, (&Chromedp{cfg: Config{ScrollDistance: 120}}).scrollDistance())
}

func TestAcquireSlotHonorsContext(t *testing.T) {
	t.Parallel()

	r := &Chromedp{sem: make(chan struct{}, 1)}
	release, err := r.acquireSlot(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.acquireSlot(ctx)
	require.ErrorIs(t, err, context.Canceled)

	release()
	release, err = r.acquireSlot(context.Background())
	require.NoError(t, err)
	release()
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
}

func TestChromedpRenderCapturesNetworkLog(t *testing.T) {
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/avatar_400x400.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/jack", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><img src="/avatar_400x400.png"></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	r, err := NewChromedp(Config{
		ProfileURL:        srv.URL + "/%s",
		MaxTabs:           1,
		NavigationTimeout: 20 * time.Second,
		ScrollSteps:       1,
	}, zap.NewNop())
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	page, err := r.Render(context.Background(), "jack")
	if err != nil {
		t.Skipf("render failed: %v", err)
	}
	assert.Equal(t, "jack", page.Account)
	assert.Contains(t, page.Markup, "avatar_400x400.png")

	entries, err := page.Log.Entries()
	require.NoError(t, err)
	var sawImage bool
	for _, e := range entries {
		if e.Kind == avatar.EventResponse && e.URL == srv.URL+"/avatar_400x400.png" {
			sawImage = true
		}
	}
	assert.True(t, sawImage, "expected image response in network log: %+v", entries)
}
