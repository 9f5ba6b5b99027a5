// Package results defines the per-account outcome of a batch run and the
// sinks that record it.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one account in one run.
type Result struct {
	RunID      string    `json:"run_id"`
	Account    string    `json:"account"`
	ImageURL   string    `json:"image_url,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at"`
	Error      string    `json:"error,omitempty"`
}

// Recorder persists results. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Multi fans a result out to several recorders and joins their errors.
type Multi []Recorder

// Record calls every recorder, even after a failure.
func (m Multi) Record(ctx context.Context, result Result) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("record %s: %w", result.Account, errors.Join(errs...))
	}
	return nil
}

// LogRecorder writes each result as a structured log line.
type LogRecorder struct {
	Logger *zap.Logger
}

// Record logs the result at info level, or warn when unresolved.
func (l LogRecorder) Record(_ context.Context, r Result) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.L()
	}
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.String("account", r.Account),
		zap.Bool("resolved", r.Resolved),
	}
	if r.Resolved {
		logger.Info("profile image resolved", append(fields,
			zap.String("url", r.ImageURL),
			zap.String("strategy", r.Strategy),
		)...)
		return nil
	}
	if r.Error != "" {
		fields = append(fields, zap.String("error", r.Error))
	}
	logger.Warn("profile image unresolved", fields...)
	return nil
}
