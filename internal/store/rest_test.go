package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dietnotify/pkg/logx"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *restStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := openREST(Config{RestURL: srv.URL, RestAPIKey: "test-key"}, logx.Nop())
	if err != nil {
		t.Fatalf("openREST: %v", err)
	}
	return s
}

func TestAllEnabled(t *testing.T) {
	t.Parallel()
	s := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/notification_preferences" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("enabled"); got != "eq.true" {
			t.Errorf("enabled filter = %q, want eq.true", got)
		}
		if got := r.Header.Get("apikey"); got != "test-key" {
			t.Errorf("apikey header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"user_id":"u1","lead_time_minutes":5,"custom_timings":{"Lunch":"12:30"}},
			{"user_id":"u2","lead_time_minutes":15,"custom_timings":null}
		]`))
	})

	prefs, err := s.AllEnabled(context.Background())
	if err != nil {
		t.Fatalf("AllEnabled: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("got %d preferences, want 2", len(prefs))
	}
	if prefs[0].UserID != "u1" || prefs[0].LeadTimeMinutes != 5 {
		t.Fatalf("unexpected first preference: %+v", prefs[0])
	}
	if prefs[0].CustomTimings["Lunch"] != "12:30" {
		t.Fatalf("custom timings not decoded: %+v", prefs[0].CustomTimings)
	}
}

func TestActivePlan(t *testing.T) {
	t.Parallel()
	s := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("user_id"); got != "eq.u1" {
			t.Errorf("user_id filter = %q", got)
		}
		if got := q.Get("is_active"); got != "eq.true" {
			t.Errorf("is_active filter = %q", got)
		}
		_, _ = w.Write([]byte(`[{"plan_data":{"diet_protocol":{"meals":[
			{"name":"Breakfast","time":"7:00 AM","bullets":["Oats","Eggs","Fruit"]}
		]}}}]`))
	})

	plan, err := s.ActivePlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ActivePlan: %v", err)
	}
	meals := plan.PlanData.DietProtocol.Meals
	if len(meals) != 1 || meals[0].Name != "Breakfast" || len(meals[0].Bullets) != 3 {
		t.Fatalf("unexpected plan: %+v", meals)
	}
}

func TestActivePlanNotFound(t *testing.T) {
	t.Parallel()
	s := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := s.ActivePlan(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserTokens(t *testing.T) {
	t.Parallel()
	s := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/notification_tokens" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"fcm_token":"tokA"},{"fcm_token":"tokB"}]`))
	})
	tokens, err := s.UserTokens(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UserTokens: %v", err)
	}
	if len(tokens) != 2 || tokens[0].FCMToken != "tokA" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	t.Parallel()
	s := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	})
	if _, err := s.AllEnabled(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
