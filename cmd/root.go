// Package cmd defines the CLI commands for the avatar-resolver executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-image-resolver/internal/config"
	"github.com/JakeFAU/profile-image-resolver/internal/logging"
)

type stateKey struct{}

// state is what PersistentPreRunE hands to subcommands.
type state struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "avatar-resolver",
		Short: "Resolve profile-image URLs for account handles.",
		Long: `avatar-resolver renders public profile pages and recovers the canonical
400x400 profile image from structured data, page markup or the captured
network log, writing the result back to the account spreadsheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), stateKey{}, &state{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if st, ok := cmd.Context().Value(stateKey{}).(*state); ok {
				_ = st.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.AddCommand(newResolveCmd(), newExtractCmd())
	return cmd
}

func stateFrom(ctx context.Context) (*state, error) {
	st, ok := ctx.Value(stateKey{}).(*state)
	if !ok || st == nil {
		return nil, errors.New("configuration not loaded")
	}
	return st, nil
}

// Execute runs the root command until it finishes or the process is signaled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
