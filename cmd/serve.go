package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"skladtrack/internal/engine"
	"skladtrack/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the skladtrack HTTP API and the background archival scheduler.
The scheduler periodically archives tasks that have been done longer than the
configured cooldown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		clock := engine.SystemClock()
		archiver := engine.NewArchiver(st, st, clock, cfg.Cooldown())

		scheduler := cron.New()
		_, err = scheduler.AddFunc(cfg.Archive.Cron, func() {
			count, err := archiver.Run()
			if err != nil {
				slog.Error("archival pass failed", "err", err)
				return
			}
			slog.Info("archival pass finished", "archived", count)
		})
		if err != nil {
			return fmt.Errorf("schedule archival (%q): %w", cfg.Archive.Cron, err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		srv := server.New(cfg.Server.Addr, eng, archiver, st, clock)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
