package downloadclient

import (
	"fmt"
	"sync"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/store"
)

// Manager resolves the adapter responsible for a protocol. Torrent and
// usenet adapters come from the configured client rows; the direct
// adapter is always present and needs no configuration.
type Manager struct {
	mu       sync.RWMutex
	adapters map[models.Protocol]Adapter
	configs  map[models.Protocol]*models.DownloadClientConfig
}

// NewManager builds adapters from every enabled client config. Two
// enabled clients on the same protocol is a configuration error; the
// store guards against it as well, but a stale database should not slip
// past here silently.
func NewManager(st *store.Store, downloadDir string) (*Manager, error) {
	adapters, configs, err := buildAdapters(st, downloadDir)
	if err != nil {
		return nil, err
	}
	return &Manager{adapters: adapters, configs: configs}, nil
}

// NewManagerWithAdapters is for tests and for callers that build their
// own adapters.
func NewManagerWithAdapters(adapters ...Adapter) *Manager {
	m := &Manager{
		adapters: make(map[models.Protocol]Adapter),
		configs:  make(map[models.Protocol]*models.DownloadClientConfig),
	}
	for _, a := range adapters {
		m.adapters[a.Protocol()] = a
	}
	return m
}

func buildAdapters(st *store.Store, downloadDir string) (map[models.Protocol]Adapter, map[models.Protocol]*models.DownloadClientConfig, error) {
	configs, err := st.EnabledClientConfigs()
	if err != nil {
		return nil, nil, fmt.Errorf("loading download clients: %w", err)
	}

	adapters := map[models.Protocol]Adapter{
		models.ProtocolDirect: NewDirect(downloadDir),
	}
	byProtocol := make(map[models.Protocol]*models.DownloadClientConfig)
	for _, cfg := range configs {
		adapter, err := NewAdapter(cfg, downloadDir)
		if err != nil {
			return nil, nil, fmt.Errorf("client %q: %w", cfg.Name, err)
		}
		proto := adapter.Protocol()
		if _, dup := adapters[proto]; dup {
			return nil, nil, fmt.Errorf("multiple enabled clients for protocol %s", proto)
		}
		adapters[proto] = adapter
		byProtocol[proto] = cfg
	}
	return adapters, byProtocol, nil
}

// Reload rebuilds the adapters from the current client rows. Called
// after a client config is created, updated, or deleted.
func (m *Manager) Reload(st *store.Store, downloadDir string) error {
	adapters, configs, err := buildAdapters(st, downloadDir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.adapters = adapters
	m.configs = configs
	m.mu.Unlock()
	return nil
}

// AdapterFor returns the adapter handling the protocol, or nil when no
// client is configured for it.
func (m *Manager) AdapterFor(protocol models.Protocol) Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adapters[protocol]
}

// ConfigFor returns the client config backing the protocol's adapter.
// The direct adapter has no config row, so this can be nil even when
// AdapterFor is not.
func (m *Manager) ConfigFor(protocol models.Protocol) *models.DownloadClientConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configs[protocol]
}
