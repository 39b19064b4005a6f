package downloadclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/audiarr/audiarr/internal/models"
)

// Mock is an in-memory adapter used by tests across packages.
type Mock struct {
	ClientName     string
	ClientProtocol models.Protocol
	AddErr         error
	TestErr        error

	mu        sync.Mutex
	nextID    int
	Downloads map[string]*DownloadStatus
	Deleted   map[string]bool
	AddedURLs []string
}

func NewMock(protocol models.Protocol) *Mock {
	return &Mock{
		ClientName:     "mock",
		ClientProtocol: protocol,
		Downloads:      make(map[string]*DownloadStatus),
		Deleted:        make(map[string]bool),
	}
}

func (m *Mock) Name() string {
	return m.ClientName
}

func (m *Mock) Protocol() models.Protocol {
	return m.ClientProtocol
}

func (m *Mock) Test(ctx context.Context) error {
	return m.TestErr
}

func (m *Mock) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	if m.AddErr != nil {
		return "", m.AddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("mock-%d", m.nextID)
	m.AddedURLs = append(m.AddedURLs, downloadURL)
	m.Downloads[id] = &DownloadStatus{ID: id, Name: downloadURL, State: StateDownloading}
	return id, nil
}

func (m *Mock) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Downloads[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *Mock) Delete(ctx context.Context, id string, deleteFiles bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Downloads, id)
	m.Deleted[id] = true
	return nil
}

// SetStatus lets tests drive a download through its lifecycle.
func (m *Mock) SetStatus(id string, fn func(*DownloadStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Downloads[id]; ok {
		fn(s)
	}
}
