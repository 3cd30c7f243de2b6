package entity

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry caches the ordered list of enabled entity ids.
//
// All public methods are thread-safe.
type Registry struct {
	repo   Repository
	mu     sync.RWMutex
	ids    []string
	loaded bool
	logger Logger
}

// NewRegistry creates a registry over repo. Call Refresh before IDs.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Refresh reloads enabled entities from the repository.
func (r *Registry) Refresh(ctx context.Context) error {
	entities, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}

	seen := make(map[string]bool, len(entities))
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		if !e.Enabled || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		ids = append(ids, e.ID)
	}

	r.mu.Lock()
	r.ids = ids
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("entity registry refreshed", "count", len(ids))
	if len(ids) == 0 {
		r.logger.Warn("no enabled entities; dispatched commands will not be logged")
	}
	return nil
}

// IDs returns a copy of the cached ids in registry order. Each id appears
// once.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Loaded reports whether Refresh has succeeded at least once.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Repository returns the underlying repository.
func (r *Registry) Repository() Repository {
	return r.repo
}
