package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dietnotify/pkg/logx"
)

// pgStore talks to the database behind the REST endpoint directly. Same
// tables, same shapes; useful when the engine is co-located with the
// database and the REST hop is just overhead.
type pgStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (*pgStore, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("store: database_url required")
	}
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	pc.MaxConnLifetime = 5 * time.Minute
	pc.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &pgStore{pool: pool, log: log}, nil
}

func (s *pgStore) AllEnabled(ctx context.Context) ([]Preference, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, lead_time_minutes, COALESCE(custom_timings, '{}'::jsonb)
		 FROM notification_preferences
		 WHERE enabled`)
	if err != nil {
		return nil, fmt.Errorf("enabled preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var (
			p   Preference
			raw []byte
		)
		if err := rows.Scan(&p.UserID, &p.LeadTimeMinutes, &raw); err != nil {
			return nil, fmt.Errorf("enabled preferences: scan: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p.CustomTimings); err != nil {
				return nil, fmt.Errorf("custom timings for %s: %w", p.UserID, err)
			}
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (s *pgStore) ActivePlan(ctx context.Context, userID string) (*Plan, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT plan_data
		 FROM diet_plans
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT 1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active plan for %s: %w", userID, err)
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan.PlanData); err != nil {
		return nil, fmt.Errorf("active plan for %s: decode: %w", userID, err)
	}
	return &plan, nil
}

func (s *pgStore) UserTokens(ctx context.Context, userID string) ([]DeviceToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fcm_token FROM notification_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("tokens for %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []DeviceToken
	for rows.Next() {
		var t DeviceToken
		if err := rows.Scan(&t.FCMToken); err != nil {
			return nil, fmt.Errorf("tokens for %s: scan: %w", userID, err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *pgStore) Close() {
	s.pool.Close()
}
