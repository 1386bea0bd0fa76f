package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dietnotify/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store, want nil", driver)
		}
	}
}

func TestSQLiteAppendAndRead(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "deliveries.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []DeliveryEntry{
		{UserID: "u1", JobID: "meal_u1_Lunch_100PM", Meal: "Lunch", Kind: "recurring", Token: "tokA...", OK: true},
		{UserID: "u1", JobID: "meal_u1_Dinner_700PM", Meal: "Dinner", Kind: "catchup", Token: "tokA...", OK: false, Error: "device token unregistered"},
	}
	for _, e := range entries {
		if err := st.AppendDelivery(ctx, e); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	got, err := st.RecentDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Meal != "Dinner" || got[0].OK {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Meal != "Lunch" || !got[1].OK {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
	if got[0].At.IsZero() || time.Since(got[0].At) > time.Minute {
		t.Fatalf("timestamp not recorded: %v", got[0].At)
	}
}
