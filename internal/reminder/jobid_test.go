package reminder

import (
	"strings"
	"testing"
)

func TestJobIDSanitization(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		userID   string
		mealName string
		mealTime string
		want     string
	}{
		{name: "pm with space", userID: "u1", mealName: "Lunch", mealTime: "1:00 PM", want: "meal_u1_Lunch_100PM"},
		{name: "am", userID: "u1", mealName: "Breakfast", mealTime: "7:05 AM", want: "meal_u1_Breakfast_705AM"},
		{name: "24h", userID: "u1", mealName: "Dinner", mealTime: "19:00", want: "meal_u1_Dinner_1900"},
		{name: "spaced meal name", userID: "u2", mealName: "Metabolic Ignition Breakfast", mealTime: "7:00 AM", want: "meal_u2_Metabolic_Ignition_Breakfast_700AM"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := JobID(tt.userID, tt.mealName, tt.mealTime)
			if got != tt.want {
				t.Fatalf("JobID = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(got, UserPrefix(tt.userID)) {
				t.Fatalf("JobID %q lacks user prefix %q", got, UserPrefix(tt.userID))
			}
		})
	}
}

func TestJobIDDeterministic(t *testing.T) {
	t.Parallel()
	a := JobID("u1", "Lunch", "1:00 PM")
	b := JobID("u1", "Lunch", "1:00 PM")
	if a != b {
		t.Fatalf("same inputs produced different ids: %q vs %q", a, b)
	}
}

func TestJobIDUnique(t *testing.T) {
	t.Parallel()
	ids := map[string]string{}
	cases := [][3]string{
		{"u1", "Lunch", "1:00 PM"},
		{"u1", "Lunch", "2:00 PM"},
		{"u1", "Dinner", "1:00 PM"},
		{"u2", "Lunch", "1:00 PM"},
	}
	for _, c := range cases {
		id := JobID(c[0], c[1], c[2])
		if prev, dup := ids[id]; dup {
			t.Fatalf("collision: %v and %s both map to %q", c, prev, id)
		}
		ids[id] = c[0] + "/" + c[1] + "/" + c[2]
	}
}
