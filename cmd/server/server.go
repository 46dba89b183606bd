package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// serve starts the task runner and the HTTP server and blocks until ctx is
// cancelled or either fails. HTTP drains before the runner stops.
func (app *application) serve(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(app.config.Server.Port)),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		app.taskRunner.Stop()
		if err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		app.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
