package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/audiarr/audiarr/internal/logger"
)

// Job names, shared with the API's manual-trigger endpoint.
const (
	JobDownloadMonitor = "download-monitor"
	JobLibraryScan     = "library-scan"
	JobSeedingCleanup  = "seeding-cleanup"
	JobRetrySweep      = "retry-sweep"
)

// RegisterAll registers the recurring pipeline sweeps with the manager.
func RegisterAll(jm *JobManager) {
	jm.Register(JobDownloadMonitor, func(ctx JobContext) error {
		return ctx.Pipeline().MonitorDownloads(context.Background())
	})
	jm.Register(JobLibraryScan, func(ctx JobContext) error {
		return ctx.Pipeline().ScanLibrary(context.Background())
	})
	jm.Register(JobSeedingCleanup, func(ctx JobContext) error {
		return ctx.Pipeline().CleanupSweep(context.Background())
	})
	jm.Register(JobRetrySweep, func(ctx JobContext) error {
		return ctx.Pipeline().RetrySweep(context.Background())
	})
}

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	cfg := app.Config()
	scheduleJob(s, app, JobDownloadMonitor, cfg.MonitorInterval)
	scheduleJob(s, app, JobLibraryScan, cfg.ScanInterval)
	scheduleJob(s, app, JobSeedingCleanup, cfg.CleanupInterval)
	scheduleJob(s, app, JobRetrySweep, cfg.RetrySweepInterval)

	logger.Info().Msg("starting background job scheduler")
	s.StartAsync()
}

func scheduleJob(s *gocron.Scheduler, app JobContext, jobID string, intervalMinutes int) {
	if intervalMinutes == 0 {
		logger.Info().Str("job", jobID).Msg("interval is 0, scheduled run is disabled")
		return
	}

	logger.Info().Str("job", jobID).Int("minutes", intervalMinutes).Msg("scheduling job")
	_, err := s.Every(intervalMinutes).Minutes().Do(func() {
		if err := app.JobManager().RunJob(jobID, app); err != nil {
			logger.Debug().Str("job", jobID).Err(err).Msg("scheduled job could not start")
		}
	})
	if err != nil {
		logger.Error().Str("job", jobID).Err(err).Msg("error scheduling job")
	}
}
