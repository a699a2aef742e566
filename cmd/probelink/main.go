package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/probelink/probelink/internal/app"
	"github.com/probelink/probelink/internal/config"
	"github.com/probelink/probelink/internal/observability"
)

func main() {
	root := &cobra.Command{
		Use:   "probelink",
		Short: "Telemetry relay with token sessions and live viewer streaming",
	}
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}
			defer func() {
				if err := runtime.Shutdown(context.Background()); err != nil {
					logger.Warn("observability shutdown failed", "error", err)
				}
			}()

			a, err := app.New(ctx, cfg, logger, runtime)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}
