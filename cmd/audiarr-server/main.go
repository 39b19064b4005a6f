package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiarr/audiarr/internal/api"
	"github.com/audiarr/audiarr/internal/core"
	"github.com/audiarr/audiarr/internal/jobs"
	"github.com/audiarr/audiarr/internal/library"
	"github.com/audiarr/audiarr/internal/logger"
)

var version = "dev"

func main() {
	app, err := core.New(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error during application setup: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// Progress updates flow through the hub to connected clients.
	go app.WsHub().Run()

	// Background sweeps: download monitoring, library scanning, seeding
	// cleanup, and search retries.
	jobs.StartJobs(app)

	// An initial scan reconciles the library with any requests that
	// became available while the server was down.
	go app.JobManager().RunJob(jobs.JobLibraryScan, app)

	// The download watcher catches completions between monitor ticks.
	watcher := library.NewWatcher(app.Config().Download.Dir, func() {
		if err := app.JobManager().RunJob(jobs.JobDownloadMonitor, app); err != nil {
			logger.Debug().Err(err).Msg("watcher-triggered monitor run skipped")
		}
	})
	if err := watcher.Start(); err != nil {
		logger.Warn().Err(err).Msg("download watcher could not start, relying on the monitor interval")
	} else {
		defer watcher.Stop()
	}

	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting web server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("could not start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exiting")
}
