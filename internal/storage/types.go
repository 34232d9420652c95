// Package storage persists subscribers and their group assignments behind a
// single Store interface with interchangeable backends (JSON state file or
// SQLite). Callers are agnostic to which backend is active.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file":   JSON state file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the subscriber/group-assignment API used by the bot and the
// notification orchestrator. Both backends satisfy identical semantics.
type Store interface {
	// GetGroup returns the group assigned to a chat; ok is false when the
	// chat has no assignment.
	GetGroup(ctx context.Context, chatID int64) (gid string, ok bool, err error)
	SetGroup(ctx context.Context, chatID int64, gid string) error

	// Subscribers lists all chats subscribed to change notifications.
	Subscribers(ctx context.Context) ([]int64, error)
	// AddSubscriber reports true when the chat was newly added.
	AddSubscriber(ctx context.Context, chatID int64) (bool, error)
	// RemoveSubscriber reports true when the chat existed.
	RemoveSubscriber(ctx context.Context, chatID int64) (bool, error)

	Close() error
}
