package reminder

import "strings"

// JobID derives the registry key for one user's meal at its nominal time.
// The same (user, meal, time) triple always maps to the same id, so
// re-scheduling replaces instead of duplicating.
//
// Known gap: the nominal time string is part of the key, so a meal whose
// display time changes outside custom timings gets a new id and the old
// job lingers until the next restore or a user-level cancel. Keying by
// meal name alone would instead merge distinct meals that share a name at
// different times, which real plans do contain.
func JobID(userID, mealName, mealTime string) string {
	name := strings.ReplaceAll(mealName, " ", "_")
	t := strings.NewReplacer(":", "", " ", "").Replace(mealTime)
	return "meal_" + userID + "_" + name + "_" + t
}

// UserPrefix is the job-id prefix shared by all of one user's reminders;
// prefix cancel and listing key off it.
func UserPrefix(userID string) string {
	return "meal_" + userID + "_"
}
