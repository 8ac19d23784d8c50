package keys

import (
	"fmt"
	"sync"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"
)

// ModelKeySource reads the model key secret and its KVv2 version.
// *config.VaultClient implements it.
type ModelKeySource interface {
	GetModelKeys() (map[types.ModelID]string, int64, error)
}

var _ ModelKeySource = (*config.VaultClient)(nil)

// VaultWatcher polls the model key secret and replaces the Vault layer of a
// Store whenever the secret version increases.
type VaultWatcher struct {
	mu sync.RWMutex

	client       ModelKeySource
	store        *Store
	pollInterval time.Duration
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client ModelKeySource, store *Store, pollInterval time.Duration, logger *errors.Logger) *VaultWatcher {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	return &VaultWatcher{
		client:       client,
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Load fetches the secret once and installs its keys regardless of version.
func (vw *VaultWatcher) Load() error {
	keys, version, err := vw.client.GetModelKeys()
	if err != nil {
		vw.recordError(err)
		return fmt.Errorf("failed to load model keys from vault: %w", err)
	}
	vw.store.SetVaultKeys(keys)

	vw.mu.Lock()
	vw.lastVersion = version
	vw.lastError = ""
	vw.mu.Unlock()

	vw.logger.Info("Model keys loaded from Vault", "version", version, "count", len(keys))
	return nil
}

// Start begins polling Vault for secret changes
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	vw.running = true
	go vw.pollLoop(vw.stopChan)
	vw.logger.Info("Vault watcher started", "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return
	}
	close(vw.stopChan)
	vw.stopChan = make(chan struct{})
	vw.running = false
	vw.logger.Info("Vault watcher stopped")
}

func (vw *VaultWatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := vw.CheckForUpdates(); err != nil {
				vw.logger.LogError(err, "Failed to check Vault for model key updates")
			}
		case <-stop:
			return
		}
	}
}

// CheckForUpdates reads the secret and swaps the Vault layer when its
// version is newer than the last one seen. It reports whether keys changed.
func (vw *VaultWatcher) CheckForUpdates() (bool, error) {
	keys, version, err := vw.client.GetModelKeys()
	if err != nil {
		vw.recordError(err)
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastError = ""
	if version <= vw.lastVersion {
		return false, nil
	}
	vw.lastVersion = version
	vw.store.SetVaultKeys(keys)
	vw.logger.Info("Vault model keys changed, store updated", "version", version, "count", len(keys))
	return true, nil
}

func (vw *VaultWatcher) recordError(err error) {
	vw.mu.Lock()
	vw.lastError = err.Error()
	vw.mu.Unlock()
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"last_version":  vw.lastVersion,
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
