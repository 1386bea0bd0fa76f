// Package storage keeps a local log of delivery outcomes for
// observability. It is fed off the event bus and never sits on the
// scheduling or dispatch hot path; jobs themselves are in-memory only and
// rebuilt from the remote store on startup.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"dietnotify/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures local storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and Open returns
// (nil, nil).
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// DeliveryEntry records one attempted push delivery.
type DeliveryEntry struct {
	At     time.Time
	UserID string
	JobID  string
	Meal   string
	Kind   string // recurring | catchup | test
	Token  string // truncated, never the full credential
	OK     bool
	Error  string
}

// Store is the minimal persistence API used by the app.
type Store interface {
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error)
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
