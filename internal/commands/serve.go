package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tally/internal/cache"
	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/log"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func newServeCommand(e *env) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				e.cfg.Port = port
			}
			// The server logs like a service, on stdout.
			logger := cli.SetupLoggerTo(e.cfg.LogLevel, cmd.OutOrStdout())
			return runServe(cmd.Context(), e, logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(parent context.Context, e *env, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	sess, err := openSession(ctx, e.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("Failed to release backend", log.FieldError, err)
		}
	}()

	opts := apphttp.Options{
		Addr:               ":" + e.cfg.Port,
		RateLimitPerMinute: e.cfg.RateLimitPerMinute,
		BalanceStep:        e.cfg.Step(),
		SweepInterval:      sweepInterval,
	}
	if sess.backend.Cache != nil {
		opts.Cleaners = []cache.Cleaner{sess.backend.Cache.Cache()}
	}
	srv, err := apphttp.NewServer(opts, sess.account, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tally server",
			log.FieldOperation, log.OpStartup,
			"port", e.cfg.Port,
			log.FieldBackend, e.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
