// Package store reaches the durable user state the scheduling engine is
// rebuilt from: notification preferences, active diet plans and device
// tokens. Jobs themselves are never persisted here; the engine owns them
// in memory and replays this state on startup.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dietnotify/pkg/logx"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Preference is one user's notification settings. Only enabled rows are
// ever returned by AllEnabled.
type Preference struct {
	UserID          string
	LeadTimeMinutes int
	CustomTimings   map[string]string // meal name -> override time string
}

// Plan mirrors the stored diet plan document.
type Plan struct {
	PlanData PlanData `json:"plan_data"`
}

type PlanData struct {
	DietProtocol DietProtocol `json:"diet_protocol"`
}

type DietProtocol struct {
	Meals []Meal `json:"meals"`
}

type Meal struct {
	Name    string   `json:"name"`
	Time    string   `json:"time"`
	Bullets []string `json:"bullets"`
}

// DeviceToken is one registered push target.
type DeviceToken struct {
	FCMToken string `json:"fcm_token"`
}

type PreferenceStore interface {
	AllEnabled(ctx context.Context) ([]Preference, error)
}

type PlanStore interface {
	// ActivePlan returns ErrNotFound when the user has no active plan.
	ActivePlan(ctx context.Context, userID string) (*Plan, error)
}

type TokenStore interface {
	UserTokens(ctx context.Context, userID string) ([]DeviceToken, error)
}

// Stores bundles the three collaborator interfaces behind one connection.
type Stores interface {
	PreferenceStore
	PlanStore
	TokenStore
	Close()
}

// Config selects and configures the driver.
//
// Driver values:
//   - "rest": Supabase PostgREST endpoint (default)
//   - "postgres": direct connection to the underlying database
type Config struct {
	Driver      string
	RestURL     string
	RestAPIKey  string
	DatabaseURL string
}

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Stores, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "rest", "supabase":
		return openREST(cfg, log)
	case "postgres", "pg":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
