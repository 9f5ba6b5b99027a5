// Package batch drives resolution over every row of an account table.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
	"github.com/JakeFAU/profile-image-resolver/internal/metrics"
	"github.com/JakeFAU/profile-image-resolver/internal/results"
	"github.com/JakeFAU/profile-image-resolver/internal/table"
)

// ErrInvalidAccount marks rows whose identifier is not a valid handle.
var ErrInvalidAccount = errors.New("invalid account identifier")

// Renderer produces a page for an account.
type Renderer interface {
	Render(ctx context.Context, account string) (*avatar.Page, error)
}

// Resolver finds the profile image on a rendered page.
type Resolver interface {
	Resolve(page *avatar.Page) (avatar.Resolution, bool)
}

// SnapshotWriter saves the artifacts of an unresolved page.
type SnapshotWriter interface {
	Save(ctx context.Context, runID string, page *avatar.Page) ([]string, error)
}

// Clock supplies result timestamps.
type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// Options tunes a Runner.
type Options struct {
	Concurrency      int
	RenderAttempts   uint
	RenderRetryDelay time.Duration
	ResultColumn     string
	FailureMarker    string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSnapshots saves unresolved pages through w.
func WithSnapshots(w SnapshotWriter) Option {
	return func(r *Runner) { r.snapshots = w }
}

// WithRecorder hands every result to rec.
func WithRecorder(rec results.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock overrides the result clock.
func WithClock(c Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// Summary totals the outcome of a run.
type Summary struct {
	RunID      string                  `json:"run_id"`
	Total      int                     `json:"total"`
	Resolved   int                     `json:"resolved"`
	Failed     int                     `json:"failed"`
	Canceled   int                     `json:"canceled"`
	ByStrategy map[avatar.Strategy]int `json:"by_strategy"`
}

// Status is a point-in-time view of a run in progress.
type Status struct {
	Summary
	Processed int       `json:"processed"`
	StartedAt time.Time `json:"started_at"`
	Running   bool      `json:"running"`
}

// Runner resolves the profile image of every account in a table.
type Runner struct {
	renderer  Renderer
	resolver  Resolver
	snapshots SnapshotWriter
	recorder  results.Recorder
	clock     Clock
	opts      Options
	logger    *zap.Logger
	runID     string

	mu        sync.Mutex
	summary   Summary
	processed int
	startedAt time.Time
	running   bool
}

// New constructs a Runner. The run identifier is a UUIDv7 unless WithRunID
// is given.
func New(renderer Renderer, resolver Resolver, opts Options, options ...Option) (*Runner, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RenderAttempts == 0 {
		opts.RenderAttempts = 1
	}
	if opts.ResultColumn == "" {
		opts.ResultColumn = table.ResultColumn
	}
	if opts.FailureMarker == "" {
		opts.FailureMarker = table.FailureMarker
	}

	r := &Runner{
		renderer: renderer,
		resolver: resolver,
		clock:    utcClock{},
		opts:     opts,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate run id: %w", err)
		}
		r.runID = id.String()
	}
	metrics.Init()
	return r, nil
}

// RunID returns the identifier attached to every result of this runner.
func (r *Runner) RunID() string {
	return r.runID
}

// Status reports progress; safe to call while Run executes.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Status{
		Summary:   r.summary,
		Processed: r.processed,
		StartedAt: r.startedAt,
		Running:   r.running,
	}
	s.ByStrategy = make(map[avatar.Strategy]int, len(r.summary.ByStrategy))
	for k, v := range r.summary.ByStrategy {
		s.ByStrategy[k] = v
	}
	return s
}

// outcome is the result of one row.
type outcome struct {
	resolution avatar.Resolution
	resolved   bool
	canceled   bool
	err        error
}

// Run fills the result column of every row in t. One account failing never
// aborts the run; cancellation of ctx stops scheduling and is returned after
// in-flight rows finish. Rows that were not processed keep their contents.
func (r *Runner) Run(ctx context.Context, t *table.Table) (Summary, error) {
	col := t.EnsureColumn(r.opts.ResultColumn)
	r.begin(len(t.Rows))
	defer r.end()

	logger := r.logger.With(zap.String("run_id", r.runID))
	logger.Info("batch started",
		zap.Int("accounts", len(t.Rows)),
		zap.Int("concurrency", r.opts.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	scheduled := 0
	for i := range t.Rows {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			raw := table.Account(t.Rows[i])
			out := r.process(gctx, logger, raw)
			switch {
			case out.canceled:
			case out.resolved:
				t.Rows[i] = table.Set(t.Rows[i], col, out.resolution.URL)
			default:
				t.Rows[i] = table.Set(t.Rows[i], col, r.opts.FailureMarker)
			}
			r.tally(out)
			return nil
		})
	}
	_ = g.Wait()
	r.addCanceled(len(t.Rows) - scheduled)

	summary := r.Status().Summary
	logger.Info("batch finished",
		zap.Int("total", summary.Total),
		zap.Int("resolved", summary.Resolved),
		zap.Int("failed", summary.Failed),
		zap.Int("canceled", summary.Canceled),
	)
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}
	return summary, nil
}

func (r *Runner) process(ctx context.Context, logger *zap.Logger, raw string) outcome {
	account, ok := CleanAccount(raw)
	logger = logger.With(zap.String("account", account))
	if !ok {
		logger.Warn("skipping invalid account", zap.String("raw", raw))
		out := outcome{err: ErrInvalidAccount}
		r.finish(ctx, logger, account, out)
		return out
	}

	page, err := r.render(ctx, logger, account)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{canceled: true, err: err}
		}
		logger.Warn("render failed", zap.Error(err))
		out := outcome{err: err}
		r.finish(ctx, logger, account, out)
		return out
	}

	res, found := r.resolver.Resolve(page)
	out := outcome{resolution: res, resolved: found}
	if !found {
		r.saveSnapshot(ctx, logger, page)
	}
	r.finish(ctx, logger, account, out)
	return out
}

func (r *Runner) render(ctx context.Context, logger *zap.Logger, account string) (*avatar.Page, error) {
	return retry.DoWithData(
		func() (*avatar.Page, error) {
			metrics.IncRendersInFlight()
			defer metrics.DecRendersInFlight()
			start := time.Now()
			page, err := r.renderer.Render(ctx, account)
			status := metrics.RenderOK
			if err != nil {
				status = metrics.RenderFailed
			}
			metrics.ObserveRender(status, time.Since(start))
			return page, err
		},
		retry.Context(ctx),
		retry.Attempts(r.opts.RenderAttempts),
		retry.Delay(r.opts.RenderRetryDelay),
		retry.MaxJitter(r.opts.RenderRetryDelay/2+time.Millisecond),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			metrics.ObserveRenderRetry()
			logger.Debug("retrying render", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (r *Runner) saveSnapshot(ctx context.Context, logger *zap.Logger, page *avatar.Page) {
	if r.snapshots == nil {
		return
	}
	uris, err := r.snapshots.Save(ctx, r.runID, page)
	if err != nil {
		logger.Warn("snapshot failed", zap.Error(err))
		return
	}
	logger.Debug("snapshot saved", zap.Strings("uris", uris))
}

func (r *Runner) finish(ctx context.Context, logger *zap.Logger, account string, out outcome) {
	metrics.ObserveResolution(string(out.resolution.Strategy))
	if out.resolved {
		logger.Info("profile image resolved",
			zap.String("strategy", string(out.resolution.Strategy)),
			zap.String("url", out.resolution.URL),
		)
	}
	if r.recorder == nil {
		return
	}
	res := results.Result{
		RunID:      r.runID,
		Account:    account,
		ImageURL:   out.resolution.URL,
		Strategy:   string(out.resolution.Strategy),
		Resolved:   out.resolved,
		ResolvedAt: r.clock.Now(),
	}
	if out.err != nil {
		res.Error = out.err.Error()
	}
	if err := r.recorder.Record(ctx, res); err != nil {
		logger.Warn("record result failed", zap.Error(err))
	}
}

func (r *Runner) begin(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = Summary{RunID: r.runID, Total: total, ByStrategy: map[avatar.Strategy]int{}}
	r.processed = 0
	r.startedAt = r.clock.Now()
	r.running = true
}

func (r *Runner) end() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) tally(out outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case out.canceled:
		r.summary.Canceled++
		return
	case out.resolved:
		r.summary.Resolved++
		r.summary.ByStrategy[out.resolution.Strategy]++
	default:
		r.summary.Failed++
	}
	r.processed++
}

func (r *Runner) addCanceled(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.summary.Canceled += n
	r.mu.Unlock()
}
