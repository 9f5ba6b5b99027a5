package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-image-resolver/internal/api"
	"github.com/JakeFAU/profile-image-resolver/internal/app"
	"github.com/JakeFAU/profile-image-resolver/internal/batch"
	"github.com/JakeFAU/profile-image-resolver/internal/config"
	"github.com/JakeFAU/profile-image-resolver/internal/results"
	"github.com/JakeFAU/profile-image-resolver/internal/table"
)

// services is the slice of app.App the resolve command depends on.
type services interface {
	Renderer() batch.Renderer
	Resolver() batch.Resolver
	Snapshots() batch.SnapshotWriter
	Recorder() results.Recorder
	Ready(ctx context.Context) error
	Close()
}

// newServices is a variable so tests can substitute fakes.
var newServices = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (services, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type resolveFlags struct {
	output      string
	concurrency int
	engine      string
}

func newResolveCmd() *cobra.Command {
	var flags resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve [accounts.csv]",
		Short: "Resolve the profile image of every account in a CSV file",
		Long: `Reads account identifiers from the first column of a CSV file, resolves
each account's profile image and writes the URL (or a failure marker) into the
"Profile Image URL" column. The file is rewritten in place unless --output is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write results to this file instead of the input")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 0, "accounts processed in parallel (overrides batch.concurrency)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "renderer engine: chromedp or static (overrides browser.engine)")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string, flags resolveFlags) error {
	st, err := stateFrom(cmd.Context())
	if err != nil {
		return err
	}
	cfg := st.cfg
	if flags.concurrency > 0 {
		cfg.Batch.Concurrency = flags.concurrency
	}
	if flags.engine != "" {
		cfg.Browser.Engine = flags.engine
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	input := cfg.Table.Input
	if len(args) == 1 {
		input = args[0]
	}
	output := flags.output
	if output == "" {
		output = cfg.Table.Output
	}
	if output == "" {
		output = input
	}

	tbl, err := table.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	ctx := cmd.Context()
	svc, err := newServices(ctx, cfg, st.logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer svc.Close()

	runner, err := batch.New(svc.Renderer(), svc.Resolver(), batch.Options{
		Concurrency:      cfg.Batch.Concurrency,
		RenderAttempts:   cfg.Batch.RenderAttempts,
		RenderRetryDelay: cfg.Batch.RenderRetryDelay,
		ResultColumn:     cfg.Table.ResultColumn,
		FailureMarker:    cfg.Table.FailureMarker,
	},
		batch.WithLogger(st.logger),
		batch.WithRecorder(svc.Recorder()),
		batch.WithSnapshots(svc.Snapshots()),
	)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	stopOps := startOpsServer(ctx, cfg.Metrics.Addr, st.logger, svc, runner)
	defer stopOps()

	summary, runErr := runner.Run(ctx, tbl)
	if err := tbl.WriteFile(output); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: resolved %d of %d (failed %d, canceled %d) -> %s\n",
		summary.RunID, summary.Resolved, summary.Total, summary.Failed, summary.Canceled, output)
	return runErr
}

// startOpsServer serves probes and metrics while the batch runs. It returns a
// function that stops the server and waits for it to exit.
func startOpsServer(ctx context.Context, addr string, logger *zap.Logger, svc services, runner *batch.Runner) func() {
	if addr == "" {
		return func() {}
	}
	srv := api.NewServer(api.Options{
		Logger: logger,
		Ready:  svc.Ready,
		Status: func() any { return runner.Status() },
	})
	opsCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(opsCtx, addr); err != nil {
			logger.Error("ops server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
