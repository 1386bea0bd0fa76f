package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dietnotify/pkg/logx"
)

// restStore talks to a Supabase PostgREST endpoint. Filters use the
// PostgREST operator syntax (column=eq.value).
type restStore struct {
	hc     *http.Client
	base   string
	apiKey string
	log    logx.Logger
}

func openREST(cfg Config, log logx.Logger) (*restStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.RestURL), "/")
	if base == "" {
		return nil, errors.New("store: rest_url required")
	}
	if strings.TrimSpace(cfg.RestAPIKey) == "" {
		return nil, errors.New("store: rest_api_key required")
	}
	return &restStore{
		hc:     &http.Client{Timeout: 10 * time.Second},
		base:   base,
		apiKey: cfg.RestAPIKey,
		log:    log,
	}, nil
}

func (s *restStore) AllEnabled(ctx context.Context) ([]Preference, error) {
	params := url.Values{}
	params.Set("enabled", "eq.true")
	params.Set("select", "user_id,lead_time_minutes,custom_timings")

	var rows []struct {
		UserID          string            `json:"user_id"`
		LeadTimeMinutes int               `json:"lead_time_minutes"`
		CustomTimings   map[string]string `json:"custom_timings"`
	}
	if err := s.get(ctx, "notification_preferences", params, &rows); err != nil {
		return nil, fmt.Errorf("enabled preferences: %w", err)
	}

	prefs := make([]Preference, 0, len(rows))
	for _, r := range rows {
		prefs = append(prefs, Preference{
			UserID:          r.UserID,
			LeadTimeMinutes: r.LeadTimeMinutes,
			CustomTimings:   r.CustomTimings,
		})
	}
	return prefs, nil
}

func (s *restStore) ActivePlan(ctx context.Context, userID string) (*Plan, error) {
	params := url.Values{}
	params.Set("user_id", "eq."+userID)
	params.Set("is_active", "eq.true")
	params.Set("select", "plan_data")
	params.Set("order", "created_at.desc")
	params.Set("limit", "1")

	var rows []Plan
	if err := s.get(ctx, "diet_plans", params, &rows); err != nil {
		return nil, fmt.Errorf("active plan for %s: %w", userID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *restStore) UserTokens(ctx context.Context, userID string) ([]DeviceToken, error) {
	params := url.Values{}
	params.Set("user_id", "eq."+userID)
	params.Set("select", "fcm_token")

	var rows []DeviceToken
	if err := s.get(ctx, "notification_tokens", params, &rows); err != nil {
		return nil, fmt.Errorf("tokens for %s: %w", userID, err)
	}
	return rows, nil
}

func (s *restStore) Close() {}

func (s *restStore) get(ctx context.Context, table string, params url.Values, out any) error {
	u := fmt.Sprintf("%s/rest/v1/%s?%s", s.base, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d: %s", table, resp.StatusCode, snippet(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", table, err)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
