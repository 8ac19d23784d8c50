// Package keys resolves the API key of each model family from the user key
// file, Vault, the environment and the config file, in that order.
package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"
)

// Source names the layer a key was found in.
type Source string

const (
	SourceNone   Source = "none"
	SourceUser   Source = "user"
	SourceVault  Source = "vault"
	SourceEnv    Source = "env"
	SourceConfig Source = "config"
)

// Entry describes one model key without exposing it.
type Entry struct {
	Model  types.ModelID `json:"model"`
	Source Source        `json:"source"`
	Masked string        `json:"masked,omitempty"`
}

// Store holds the per-model key layers. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	user   map[types.ModelID]string
	vault  map[types.ModelID]string
	config map[types.ModelID]string
	getenv func(string) string
	logger *errors.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithGetenv replaces os.Getenv for the environment layer.
func WithGetenv(getenv func(string) string) Option {
	return func(s *Store) {
		s.getenv = getenv
	}
}

// NewStore builds a store over cfg.Models and the user key file at path. An
// empty path keeps user keys in memory only. A missing file is not an error.
func NewStore(models config.ModelsConfig, path string, logger *errors.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	s := &Store{
		path:   path,
		user:   make(map[types.ModelID]string),
		vault:  make(map[types.ModelID]string),
		config: make(map[types.ModelID]string),
		getenv: os.Getenv,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, id := range types.KnownModels {
		if key := strings.TrimSpace(models.For(id).APIKey); key != "" {
			s.config[id] = key
		}
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromConfig is NewStore over cfg.Models and cfg.Keys.UserFile.
func NewStoreFromConfig(cfg *config.Config, logger *errors.Logger, opts ...Option) (*Store, error) {
	return NewStore(cfg.Models, cfg.Keys.UserFile, logger, opts...)
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to read key file %s", s.path), err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("key file %s is not valid JSON", s.path), err)
	}
	for name, key := range raw {
		id := types.ModelID(strings.ToLower(strings.TrimSpace(name)))
		key = strings.TrimSpace(key)
		if !id.IsKnown() || key == "" {
			s.logger.Warn("Ignoring key file entry", "model", name)
			continue
		}
		s.user[id] = key
	}
	s.logger.Debug("User keys loaded", "path", s.path, "count", len(s.user))
	return nil
}

// save writes the user layer atomically with mode 0600.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to create key directory", err)
	}

	raw := make(map[string]string, len(s.user))
	for id, key := range s.user {
		raw[string(id)] = key
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to encode keys", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".keys-*.json")
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to create key file", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to restrict key file", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to write key file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to write key file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to replace key file", err)
	}
	return nil
}

// Get returns the key for id and the layer it came from.
func (s *Store) Get(id types.ModelID) (string, Source) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id types.ModelID) (string, Source) {
	if key := s.user[id]; key != "" {
		return key, SourceUser
	}
	if key := s.vault[id]; key != "" {
		return key, SourceVault
	}
	if key := s.envKey(id); key != "" {
		return key, SourceEnv
	}
	if key := s.config[id]; key != "" {
		return key, SourceConfig
	}
	return "", SourceNone
}

func (s *Store) envKey(id types.ModelID) string {
	if !id.IsKnown() {
		return ""
	}
	if key := strings.TrimSpace(s.getenv(config.ModelKeyEnv(id))); key != "" {
		return key
	}
	return strings.TrimSpace(s.getenv(config.LegacyKeyEnv(id)))
}

// Key returns only the key for id. It matches ai.KeyLookup.
func (s *Store) Key(id types.ModelID) string {
	key, _ := s.Get(id)
	return key
}

// Set stores a user key for id and persists the user layer.
func (s *Store) Set(id types.ModelID, key string) error {
	key = strings.TrimSpace(key)
	if !id.IsKnown() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown model %q", id), nil)
	}
	if key == "" {
		return errors.NewValidationError(errors.ErrCodeMissingAPIKey, "API key must not be empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, had := s.user[id]
	s.user[id] = key
	if err := s.save(); err != nil {
		if had {
			s.user[id] = previous
		} else {
			delete(s.user, id)
		}
		return err
	}
	s.logger.Info("User key stored", "model", id)
	return nil
}

// Remove deletes the user key for id. It reports whether a key was removed.
func (s *Store) Remove(id types.ModelID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, had := s.user[id]
	if !had {
		return false, nil
	}
	delete(s.user, id)
	if err := s.save(); err != nil {
		s.user[id] = previous
		return false, err
	}
	s.logger.Info("User key removed", "model", id)
	return true, nil
}

// SetVaultKeys replaces the whole Vault layer.
func (s *Store) SetVaultKeys(keys map[types.ModelID]string) {
	layer := make(map[types.ModelID]string, len(keys))
	for id, key := range keys {
		if key = strings.TrimSpace(key); key != "" && id.IsKnown() {
			layer[id] = key
		}
	}
	s.mu.Lock()
	s.vault = layer
	s.mu.Unlock()
}

// HasAny reports whether any model has a key in any layer.
func (s *Store) HasAny() bool {
	return len(s.Available()) > 0
}

// Available lists models with a key in any layer, in KnownModels order.
func (s *Store) Available() []types.ModelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ModelID, 0, len(types.KnownModels))
	for _, id := range types.KnownModels {
		if key, _ := s.getLocked(id); key != "" {
			out = append(out, id)
		}
	}
	return out
}

// Configured lists models with an environment or config file key, in
// KnownModels order.
func (s *Store) Configured() []types.ModelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ModelID, 0, len(types.KnownModels))
	for _, id := range types.KnownModels {
		if s.envKey(id) != "" || s.config[id] != "" {
			out = append(out, id)
		}
	}
	return out
}

// List describes every known model, masked.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(types.KnownModels))
	for _, id := range types.KnownModels {
		key, source := s.getLocked(id)
		entries = append(entries, Entry{Model: id, Source: source, Masked: Mask(key)})
	}
	return entries
}

// UserModels lists models with a user key, sorted.
func (s *Store) UserModels() []types.ModelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ModelID, 0, len(s.user))
	for id := range s.user {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Path is the user key file, "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Mask keeps the first three and last four characters of keys long enough
// to survive it.
func Mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
	}
}
