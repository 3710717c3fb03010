// Package auth guards the remote-control API with access keys read from a
// JSON file that is reloaded whenever it changes.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const keysFileName = "api_keys.json"

// Key is one entry of api_keys.json.
type Key struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Service checks access keys.
type Service struct {
	mu      sync.RWMutex
	path    string
	keys    []Key
	watcher *fsnotify.Watcher
}

// NewService loads the keys file in configDir and watches it. An empty
// configDir, or a missing file, leaves the API open.
func NewService(configDir string) (*Service, error) {
	s := &Service{}
	if configDir == "" {
		return s, nil
	}
	s.path = filepath.Join(configDir, keysFileName)

	if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher
	if err := watcher.Add(configDir); err != nil {
		slog.Warn("auth: could not watch config dir", "err", err)
	}
	go s.watchLoop()
	return s, nil
}

// Reload re-reads the keys file.
func (s *Service) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.set(nil)
			return nil
		}
		return err
	}

	var keys []Key
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	s.set(keys)
	slog.Debug("auth: reloaded keys", "count", len(keys))
	return nil
}

func (s *Service) set(keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == s.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}

// IsOpenMode reports whether no keys are configured, in which case every
// request is allowed.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys) == 0
}

// VerifyKey reports whether key matches a configured key. An empty key never
// matches.
func (s *Service) VerifyKey(key string) bool {
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
			return true
		}
	}
	return false
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
