package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

const (
	webdriverOverrideScript = "Object.defineProperty(navigator,'webdriver',{get:()=>false});"
	scrollScript            = "window.scrollBy(0, %d);"
)

// Config controls the headless Chrome renderer.
type Config struct {
	ChromePath        string
	UserAgent         string
	AcceptLanguage    string
	WindowWidth       int
	WindowHeight      int
	ProfileURL        string
	NavigationTimeout time.Duration
	// SettleMin/SettleMax bound the random wait after the body is ready.
	SettleMin time.Duration
	SettleMax time.Duration
	// ScrollSteps scrolls the page ScrollDistance pixels this many times,
	// pausing a random ScrollPauseMin..ScrollPauseMax after each step.
	ScrollSteps    int
	ScrollDistance int
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration
	// MaxTabs bounds concurrently open tabs.
	MaxTabs int
	// NavigationsPerSecond paces navigations across all tabs; <= 0 disables pacing.
	NavigationsPerSecond float64
}

// Chromedp renders profile pages in headless Chrome and records the
// network events observed while each page loads.
type Chromedp struct {
	cfg             Config
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	sem             chan struct{}
	pace            *rate.Limiter
	logger          *zap.Logger
}

// NewChromedp starts a browser and returns a renderer backed by it.
func NewChromedp(cfg Config, logger *zap.Logger) (*Chromedp, error) {
	if cfg.MaxTabs <= 0 {
		return nil, fmt.Errorf("max tabs must be > 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Chromedp{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sem:             make(chan struct{}, cfg.MaxTabs),
		pace:            newPacer(cfg.NavigationsPerSecond),
		logger:          logger,
	}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

func newPacer(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Close shuts the browser down.
func (r *Chromedp) Close() error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	return nil
}

// Render loads the account's profile page in a fresh tab.
func (r *Chromedp) Render(ctx context.Context, account string) (*avatar.Page, error) {
	release, err := r.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := r.pace.Wait(ctx); err != nil {
		return nil, fmt.Errorf("render pacing: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	recorder := newNetworkRecorder()
	chromedp.ListenTarget(tabCtx, recorder.captureEvent)

	target := ProfileURL(r.cfg.ProfileURL, account)
	start := time.Now()
	markup, finalURL, err := r.run(taskCtx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, account, err)
	}
	if finalURL == "" {
		finalURL = target
	}

	log := recorder.snapshot()
	r.logger.Debug("page rendered",
		zap.String("account", account),
		zap.String("url", finalURL),
		zap.Int("markup_bytes", len(markup)),
		zap.Int("network_events", len(log)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &avatar.Page{
		Account: account,
		URL:     finalURL,
		Markup:  markup,
		Log:     log,
	}, nil
}

func (r *Chromedp) run(ctx context.Context, target string) (string, string, error) {
	var (
		markup   string
		finalURL string
	)
	tasks := chromedp.Tasks{
		r.setupAction(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(jitter(r.cfg.SettleMin, r.cfg.SettleMax)),
	}
	for i := 0; i < r.cfg.ScrollSteps; i++ {
		tasks = append(tasks,
			chromedp.Evaluate(fmt.Sprintf(scrollScript, r.scrollDistance()), nil),
			chromedp.Sleep(jitter(r.cfg.ScrollPauseMin, r.cfg.ScrollPauseMax)),
		)
	}
	tasks = append(tasks,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return markup, finalURL, nil
}

func (r *Chromedp) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := cdppage.AddScriptToEvaluateOnNewDocument(webdriverOverrideScript).Do(ctx); err != nil {
			return fmt.Errorf("install webdriver override: %w", err)
		}
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		switch {
		case r.cfg.UserAgent != "":
			override := emulation.SetUserAgentOverride(r.cfg.UserAgent)
			if r.cfg.AcceptLanguage != "" {
				override = override.WithAcceptLanguage(r.cfg.AcceptLanguage)
			}
			if err := override.Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		case r.cfg.AcceptLanguage != "":
			headers := network.Headers{"Accept-Language": r.cfg.AcceptLanguage}
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set accept-language: %w", err)
			}
		}
		return nil
	})
}

func (r *Chromedp) scrollDistance() int {
	if r.cfg.ScrollDistance > 0 {
		return r.cfg.ScrollDistance
	}
	return 300
}

func (r *Chromedp) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

// forwardCancel cancels the tab task when the caller's context ends.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
