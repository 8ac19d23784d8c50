package keys

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockVaultClient is a mock implementation for testing
type MockVaultClient struct {
	mu      sync.Mutex
	keys    map[types.ModelID]string
	version int64
	err     error
	reads   int
}

func (m *MockVaultClient) GetModelKeys() (map[types.ModelID]string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make(map[types.ModelID]string, len(m.keys))
	for k, v := range m.keys {
		out[k] = v
	}
	return out, m.version, nil
}

func (m *MockVaultClient) publish(version int64, keys map[types.ModelID]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
	m.keys = keys
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.ModelsConfig{}, "", nil, fakeEnv(nil))
	require.NoError(t, err)
	return store
}

func TestVaultWatcherLoad(t *testing.T) {
	client := &MockVaultClient{keys: map[types.ModelID]string{types.ModelOpenAI: "sk-v1"}, version: 1}
	store := newTestStore(t)
	vw := NewVaultWatcher(client, store, time.Minute, nil)

	require.NoError(t, vw.Load())

	key, source := store.Get(types.ModelOpenAI)
	assert.Equal(t, "sk-v1", key)
	assert.Equal(t, SourceVault, source)
	assert.Equal(t, int64(1), vw.Status()["last_version"])
}

func TestVaultWatcherCheckForUpdates(t *testing.T) {
	client := &MockVaultClient{keys: map[types.ModelID]string{types.ModelOpenAI: "sk-v1"}, version: 1}
	store := newTestStore(t)
	vw := NewVaultWatcher(client, store, time.Minute, nil)
	require.NoError(t, vw.Load())

	changed, err := vw.CheckForUpdates()
	require.NoError(t, err)
	assert.False(t, changed, "same version is not a change")

	client.publish(2, map[types.ModelID]string{types.ModelGemini: "sk-gem"})
	changed, err = vw.CheckForUpdates()
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Empty(t, store.Key(types.ModelOpenAI), "the vault layer is replaced wholesale")
	assert.Equal(t, "sk-gem", store.Key(types.ModelGemini))

	client.publish(1, map[types.ModelID]string{types.ModelQwen: "sk-old"})
	changed, err = vw.CheckForUpdates()
	require.NoError(t, err)
	assert.False(t, changed, "older versions are ignored")
}

func TestVaultWatcherErrors(t *testing.T) {
	client := &MockVaultClient{err: stderrors.New("permission denied")}
	vw := NewVaultWatcher(client, newTestStore(t), time.Minute, nil)

	assert.Error(t, vw.Load())
	_, err := vw.CheckForUpdates()
	assert.Error(t, err)
	assert.Equal(t, "permission denied", vw.Status()["last_error"])
}

func TestVaultWatcherStartStop(t *testing.T) {
	client := &MockVaultClient{version: 1, keys: map[types.ModelID]string{types.ModelClaude: "sk-c"}}
	store := newTestStore(t)
	vw := NewVaultWatcher(client, store, 10*time.Millisecond, nil)

	require.NoError(t, vw.Start())
	assert.Error(t, vw.Start(), "starting twice fails")
	assert.Equal(t, true, vw.Status()["running"])

	assert.Eventually(t, func() bool {
		return store.Key(types.ModelClaude) == "sk-c"
	}, time.Second, 10*time.Millisecond)

	vw.Stop()
	vw.Stop()
	assert.Equal(t, false, vw.Status()["running"])
	require.NoError(t, vw.Start(), "a stopped watcher can be restarted")
	vw.Stop()
}
