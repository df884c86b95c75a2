// Package registry loads the relying-party client registry from a JSON file
// and keeps it current by watching the file for changes.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// debounce coalesces bursts of file events (editors write several) into one
// reload.
const debounce = 500 * time.Millisecond

// Registry holds the registered clients, keyed case-sensitively by client_id.
type Registry struct {
	path string

	mu      sync.RWMutex
	clients map[string]domain.Client

	watcher *fsnotify.Watcher
}

// Load reads the registry file and returns a Registry serving its contents.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the client registered under clientID. Matching is
// case-sensitive.
func (r *Registry) Lookup(clientID string) (domain.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	return c, ok
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

func (r *Registry) reload() error {
	buf, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read client registry: %w", err)
	}

	var list []domain.Client
	if err := json.Unmarshal(buf, &list); err != nil {
		return fmt.Errorf("parse client registry %s: %w", r.path, err)
	}

	clients := make(map[string]domain.Client, len(list))
	for _, c := range list {
		if c.ClientID == "" {
			return fmt.Errorf("client registry %s: entry missing client_id", r.path)
		}
		clients[c.ClientID] = c
	}

	r.mu.Lock()
	r.clients = clients
	r.mu.Unlock()
	return nil
}

// Watch reloads the registry whenever its file changes, until ctx is
// cancelled. The containing directory is watched so atomic rename-over
// writes are picked up. A failed reload keeps the previous registry.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch client registry: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch client registry: %w", err)
	}
	r.watcher = watcher

	go r.run(ctx)
	return nil
}

func (r *Registry) run(ctx context.Context) {
	defer r.watcher.Close()

	log := slogx.FromContext(ctx)
	target := filepath.Clean(r.path)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Reset(debounce)
			} else {
				timer = time.NewTimer(debounce)
				fire = timer.C
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("client registry watcher error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			if err := r.reload(); err != nil {
				log.Error("client registry reload failed, keeping previous registry", "error", err)
				continue
			}
			log.Info("client registry reloaded", "clients", r.Len())
		}
	}
}
