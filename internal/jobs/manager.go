package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/pipeline"
	"github.com/audiarr/audiarr/internal/store"
	"github.com/audiarr/audiarr/internal/websocket"
)

// JobContext provides the dependencies a background job needs to run.
// The core.App struct implements this interface.
type JobContext interface {
	Store() *store.Store
	Config() *config.Config
	Pipeline() *pipeline.Processor
	WsHub() *websocket.Hub
	JobManager() *JobManager
}

type jobTask func(ctx JobContext) error

type JobStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager runs named jobs one at a time. Scheduled and manually
// triggered runs go through the same gate, so a slow scan can never
// overlap a triggered one.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
}

func NewManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
	}
}

func (jm *JobManager) Register(name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[name] = task
	jm.status[name] = &JobStatus{Name: name, Status: "idle"}
}

// RunJob starts the named job in the background. It returns an error if
// the job is unknown or another job is already running.
func (jm *JobManager) RunJob(name string, ctx JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}

	task, ok := jm.jobs[name]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", name)
	}

	jm.running = true
	status := jm.status[name]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	jm.mu.Unlock()

	logger.Info().Str("job", name).Msg("starting job")
	go func() {
		var taskErr error
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Str("job", name).Interface("panic", r).Msg("job panicked")
				taskErr = fmt.Errorf("job panicked: %v", r)
			}

			jm.mu.Lock()
			status.EndTime = time.Now()
			if taskErr != nil {
				status.Status = "failed"
				status.Message = taskErr.Error()
			} else {
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
			logger.Info().Str("job", name).Str("status", status.Status).Msg("finished job")
		}()

		taskErr = task(ctx)
	}()
	return nil
}

func (jm *JobManager) GetStatus() []*JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	var statuses []*JobStatus
	for _, s := range jm.status {
		statuses = append(statuses, s)
	}
	return statuses
}
