// Package dispatch is the push-delivery boundary. The scheduling engine
// hands it (token, title, body, data) and gets back per-send or per-batch
// outcomes; everything else (transport, retries at the gateway, token
// hygiene) belongs to the driver.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dietnotify/pkg/logx"
)

// ErrUnregistered marks a device token the gateway no longer recognizes.
// Callers may use it to prune dead tokens; the engine just counts it as a
// failure.
var ErrUnregistered = errors.New("device token unregistered")

// BatchResult aggregates per-token outcomes of one multicast send.
type BatchResult struct {
	Success int
	Failure int
}

type Dispatcher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
	SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (BatchResult, error)
}

// Config selects and tunes the driver.
//
// Driver values:
//   - "fcm": Firebase Cloud Messaging via the Admin SDK (default)
//   - "dryrun": log-only driver for local runs without credentials
type Config struct {
	Driver          string
	CredentialsPath string
	RatePerSec      int
}

// Open initializes the configured dispatcher.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Dispatcher, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "fcm":
		return newFCM(ctx, cfg, log)
	case "dryrun", "log":
		return &dryRun{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch driver: %s", cfg.Driver)
	}
}

// TruncateToken shortens a device token for logs; full tokens are
// credentials and must not be persisted.
func TruncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
