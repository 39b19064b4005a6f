package jobs_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/jobs"
	"github.com/audiarr/audiarr/internal/pipeline"
	"github.com/audiarr/audiarr/internal/store"
	"github.com/audiarr/audiarr/internal/websocket"
)

type fakeJobContext struct {
	st     *store.Store
	cfg    *config.Config
	proc   *pipeline.Processor
	ws     *websocket.Hub
	jobMgr *jobs.JobManager
}

func (f *fakeJobContext) Store() *store.Store           { return f.st }
func (f *fakeJobContext) Config() *config.Config        { return f.cfg }
func (f *fakeJobContext) Pipeline() *pipeline.Processor { return f.proc }
func (f *fakeJobContext) WsHub() *websocket.Hub         { return f.ws }
func (f *fakeJobContext) JobManager() *jobs.JobManager  { return f.jobMgr }

func TestManager_NewManager(t *testing.T) {
	mgr := jobs.NewManager()
	assert.NotNil(t, mgr)
	assert.Empty(t, mgr.GetStatus())
}

func TestManager_RegisterAndGetStatus(t *testing.T) {
	mgr := jobs.NewManager()
	mgr.Register("jobA", func(ctx jobs.JobContext) error { return nil })
	mgr.Register("jobB", func(ctx jobs.JobContext) error { return nil })
	statuses := mgr.GetStatus()
	assert.Len(t, statuses, 2)
	var foundA, foundB bool
	for _, s := range statuses {
		if s.Name == "jobA" {
			foundA = true
			assert.Equal(t, "idle", s.Status)
		}
		if s.Name == "jobB" {
			foundB = true
		}
	}
	assert.True(t, foundA && foundB)
}

func TestManager_RunJob_SuccessAndStatus(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	var called bool
	mgr.Register("jobX", func(ctx jobs.JobContext) error { called = true; return nil })
	err := mgr.RunJob("jobX", ctx)
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, called)
	statuses := mgr.GetStatus()
	assert.Equal(t, "success", statuses[0].Status)
}

func TestManager_RunJob_TaskErrorMarksFailed(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	mgr.Register("jobE", func(ctx jobs.JobContext) error { return errors.New("sweep broke") })
	err := mgr.RunJob("jobE", ctx)
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	statuses := mgr.GetStatus()
	assert.Equal(t, "failed", statuses[0].Status)
	assert.Contains(t, statuses[0].Message, "sweep broke")
}

func TestManager_RunJob_AlreadyRunning(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	block := make(chan struct{})
	mgr.Register("jobY", func(ctx jobs.JobContext) error { <-block; return nil })
	_ = mgr.RunJob("jobY", ctx)
	err := mgr.RunJob("jobY", ctx)
	assert.Error(t, err)
	close(block)
}

func TestManager_RunJob_NotFound(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	err := mgr.RunJob("nojob", ctx)
	assert.Error(t, err)
}

func TestManager_RunJob_Panic(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	mgr.Register("panicJob", func(ctx jobs.JobContext) error { panic("fail") })
	err := mgr.RunJob("panicJob", ctx)
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	statuses := mgr.GetStatus()
	assert.Equal(t, "failed", statuses[0].Status)
	assert.Contains(t, statuses[0].Message, "panicked")
}

func TestManager_Concurrency(t *testing.T) {
	mgr := jobs.NewManager()
	ctx := &fakeJobContext{cfg: &config.Config{}, jobMgr: mgr}
	var mu sync.Mutex
	var count int
	mgr.Register("jobC", func(ctx jobs.JobContext) error {
		mu.Lock()
		count++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			_ = mgr.RunJob("jobC", ctx)
			wg.Done()
		}()
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, count, "job should only run once concurrently")
	mu.Unlock()
}
