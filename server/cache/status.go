// Package cache mirrors task status into Redis for external observers.
// The in-memory registry stays authoritative; the mirror is write-through
// with a TTL and is wired only when a Redis address is configured.
package cache

import (
	"context"
	"time"

	"docconverter/server/database"
	"docconverter/server/models"
)

const (
	statusKeyPrefix = "conversion:status:"
	statusTTL       = 10 * time.Minute
)

type StatusMirror struct {
	cache *database.Cache
}

func NewStatusMirror(cache *database.Cache) *StatusMirror {
	return &StatusMirror{cache: cache}
}

// Set records a task's current status. Nil receivers are a no-op so the
// service can treat the mirror as optional.
func (m *StatusMirror) Set(ctx context.Context, taskID string, status models.TaskStatus) error {
	if m == nil {
		return nil
	}
	return m.cache.Set(ctx, statusKeyPrefix+taskID, string(status), statusTTL)
}
