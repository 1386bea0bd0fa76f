// Package reminder is the meal reminder scheduling engine. It turns diet
// plans and per-user preferences into recurring daily trigger jobs, sends
// a catch-up push when the day's slot was missed only recently, and
// rebuilds the whole job set from stored state on startup.
package reminder

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"dietnotify/internal/dispatch"
	"dietnotify/internal/eventbus"
	"dietnotify/internal/mealtime"
	"dietnotify/internal/store"
	"dietnotify/internal/trigger"
	"dietnotify/pkg/logx"
)

const (
	defaultLeadMinutes = 5
	defaultSendTimeout = 10 * time.Second

	// Kinds recorded on DeliveryEvent.
	kindRecurring = "recurring"
	kindCatchup   = "catchup"
	kindTest      = "test"
)

// Config tunes the engine.
type Config struct {
	// DefaultLeadTimeMinutes is used when a preference carries no lead
	// time of its own.
	DefaultLeadTimeMinutes int
	// SendTimeout bounds each individual push attempt.
	SendTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.DefaultLeadTimeMinutes <= 0 {
		c.DefaultLeadTimeMinutes = defaultLeadMinutes
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
}

// Service is the scheduling engine. All methods are safe for concurrent
// use; job state itself lives in the trigger registry.
type Service struct {
	cfg    Config
	log    logx.Logger
	reg    *trigger.Registry
	disp   dispatch.Dispatcher
	prefs  store.PreferenceStore
	plans  store.PlanStore
	tokens store.TokenStore
	bus    eventbus.Bus

	// now is swapped in tests to pin the catch-up window.
	now func() time.Time
}

func New(cfg Config, reg *trigger.Registry, disp dispatch.Dispatcher, st store.Stores, bus eventbus.Bus, log logx.Logger) *Service {
	cfg.applyDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		reg:    reg,
		disp:   disp,
		prefs:  st,
		plans:  st,
		tokens: st,
		bus:    bus,
		now:    time.Now,
	}
}

// ScheduleMealReminder arms one recurring daily reminder for a meal and
// returns its job ID. Scheduling the same (user, meal, time) again
// replaces the previous job. An unparseable meal time skips the meal:
// the engine logs, publishes a skip event and reports ok=false without
// touching other jobs.
//
// If today's fire time already passed less than the misfire grace ago,
// the reminder is additionally delivered once, synchronously, before
// returning.
func (s *Service) ScheduleMealReminder(userID, mealName, mealTime string, tokens []string, leadMinutes int, mealItems []string) (string, bool) {
	clock, err := mealtime.Parse(mealTime)
	if err != nil {
		s.log.Warn("meal skipped",
			logx.String("user", userID),
			logx.String("meal", mealName),
			logx.String("time", mealTime),
			logx.Err(err))
		s.publish(EventReminderSkipped, SkippedEvent{UserID: userID, Meal: mealName, Time: mealTime, Reason: err.Error()})
		return "", false
	}

	fire := clock.Minus(leadMinutes)
	id := JobID(userID, mealName, mealTime)
	title := "🍽️ " + mealName
	body := reminderBody(mealTime, mealItems)
	data := map[string]string{
		"type":      "meal_reminder",
		"meal_name": mealName,
		"meal_time": mealTime,
		"user_id":   userID,
	}

	// Snapshot the token slice: the closure outlives the caller's slice.
	toks := append([]string(nil), tokens...)

	trig := trigger.Trigger{
		Hour:         fire.Hour,
		Minute:       fire.Minute,
		MisfireGrace: trigger.DefaultMisfireGrace,
	}
	ok := s.reg.Upsert(trigger.Job{
		ID:      id,
		Name:    "Meal Reminder: " + mealName,
		Trigger: trig,
		Run: func(ctx context.Context) {
			s.deliver(ctx, userID, id, mealName, kindRecurring, toks, title, body, data)
		},
	})
	if !ok {
		return "", false
	}

	s.log.Info("meal reminder scheduled",
		logx.String("user", userID),
		logx.String("meal", mealName),
		logx.String("fires_at", fire.String()),
		logx.String("job", id))
	s.publish(EventReminderScheduled, ScheduledEvent{UserID: userID, JobID: id, Meal: mealName, FireAt: fire.String()})

	s.catchUp(userID, id, mealName, fire, trig.MisfireGrace, toks, title, body, data)
	return id, true
}

// catchUp sends the reminder immediately when today's occurrence was
// missed within the trigger's misfire grace window. The send runs
// synchronously so a restore pass delivers missed reminders before the
// process reports ready; a panic in the driver must not take down the
// scheduling loop.
func (s *Service) catchUp(userID, jobID, mealName string, fire mealtime.Clock, grace time.Duration, tokens []string, title, body string, data map[string]string) {
	if grace <= 0 {
		grace = trigger.DefaultMisfireGrace
	}
	now := s.now().In(s.reg.Location())
	target := time.Date(now.Year(), now.Month(), now.Day(), fire.Hour, fire.Minute, 0, 0, now.Location())
	late := now.Sub(target)
	if late < 0 || late >= grace {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("panic in catch-up send",
				logx.String("job", jobID),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	cu := make(map[string]string, len(data)+1)
	for k, v := range data {
		cu[k] = v
	}
	cu["catch_up"] = "true"

	s.log.Info("sending catch-up reminder",
		logx.String("user", userID),
		logx.String("meal", mealName),
		logx.Duration("late", late))
	s.publish(EventReminderCatchup, ScheduledEvent{UserID: userID, JobID: jobID, Meal: mealName, FireAt: fire.String()})
	s.deliver(context.Background(), userID, jobID, mealName, kindCatchup, tokens, title, body, cu)
}

// ScheduleFromDietPlan walks a plan's meals and schedules a reminder for
// each, returning the job IDs armed in plan order. Custom timings
// override the plan's nominal time per meal name; meals with no
// resolvable time are skipped.
func (s *Service) ScheduleFromDietPlan(userID string, plan store.PlanData, tokens []string, leadMinutes int, customTimings map[string]string) []string {
	var ids []string
	for _, meal := range plan.DietProtocol.Meals {
		name := strings.TrimSpace(meal.Name)
		if name == "" {
			name = "Meal"
		}
		t := meal.Time
		if override, ok := customTimings[name]; ok && strings.TrimSpace(override) != "" {
			t = override
		}
		if strings.TrimSpace(t) == "" {
			s.log.Warn("meal has no time, skipping",
				logx.String("user", userID),
				logx.String("meal", name))
			continue
		}
		if id, ok := s.ScheduleMealReminder(userID, name, t, tokens, leadMinutes, meal.Bullets); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CancelUserNotifications removes every armed reminder for the user and
// returns how many were removed.
func (s *Service) CancelUserNotifications(userID string) int {
	n := s.reg.RemoveByPrefix(UserPrefix(userID))
	if n > 0 {
		s.log.Info("reminders cancelled", logx.String("user", userID), logx.Int("removed", n))
		s.publish(EventReminderCancelled, CancelledEvent{UserID: userID, Removed: n})
	}
	return n
}

// GetUserJobs returns a snapshot of the user's armed reminders.
func (s *Service) GetUserJobs(userID string) []trigger.JobInfo {
	return s.reg.ListByPrefix(UserPrefix(userID))
}

// SendTestNotification pushes a fixed verification message to one token.
func (s *Service) SendTestNotification(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	err := s.disp.Send(ctx,
		token,
		"🎉 DietNotify Test",
		"Notifications are working! You'll receive meal reminders at scheduled times.",
		map[string]string{"type": "test"})

	ev := DeliveryEvent{Kind: kindTest, Token: dispatch.TruncateToken(token), OK: err == nil}
	if err != nil {
		ev.Error = err.Error()
		s.log.Warn("test notification failed", logx.String("token", ev.Token), logx.Err(err))
		s.publish(EventDispatchFailed, ev)
		return false
	}
	s.log.Info("test notification sent", logx.String("token", ev.Token))
	s.publish(EventDispatchSent, ev)
	return true
}

// Restore drops every armed job and rebuilds the set from enabled
// preferences, active plans and registered tokens. One user's failure is
// contained: it is logged and published, and the pass continues. Returns
// the total number of reminder jobs restored.
func (s *Service) Restore(ctx context.Context) int {
	cleared := s.reg.Clear()
	if cleared > 0 {
		s.log.Info("cleared stale jobs before restore", logx.Int("cleared", cleared))
	}

	prefs, err := s.prefs.AllEnabled(ctx)
	if err != nil {
		s.log.Error("restore aborted: preferences unavailable", logx.Err(err))
		return 0
	}

	users, jobs := 0, 0
	for _, pref := range prefs {
		n := s.restoreUser(ctx, pref)
		if n > 0 {
			users++
			jobs += n
		}
	}

	s.log.Info("notification jobs restored", logx.Int("users", users), logx.Int("jobs", jobs))
	s.publish(EventRestoreDone, RestoreDoneEvent{Users: users, Jobs: jobs})
	return jobs
}

// restoreUser rebuilds one user's jobs, converting panics and store
// errors into a logged, published skip.
func (s *Service) restoreUser(ctx context.Context, pref store.Preference) (n int) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("panic restoring user",
				logx.String("user", pref.UserID),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
			s.publish(EventRestoreUserFailed, RestoreFailureEvent{UserID: pref.UserID, Error: fmt.Sprint(rec)})
			n = 0
		}
	}()

	plan, err := s.plans.ActivePlan(ctx, pref.UserID)
	if err != nil {
		if err == store.ErrNotFound {
			s.log.Debug("no active plan, skipping", logx.String("user", pref.UserID))
			return 0
		}
		s.log.Warn("restore failed for user", logx.String("user", pref.UserID), logx.Err(err))
		s.publish(EventRestoreUserFailed, RestoreFailureEvent{UserID: pref.UserID, Error: err.Error()})
		return 0
	}

	devices, err := s.tokens.UserTokens(ctx, pref.UserID)
	if err != nil {
		s.log.Warn("restore failed for user", logx.String("user", pref.UserID), logx.Err(err))
		s.publish(EventRestoreUserFailed, RestoreFailureEvent{UserID: pref.UserID, Error: err.Error()})
		return 0
	}
	if len(devices) == 0 {
		s.log.Debug("no device tokens, skipping", logx.String("user", pref.UserID))
		return 0
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.FCMToken != "" {
			tokens = append(tokens, d.FCMToken)
		}
	}
	if len(tokens) == 0 {
		return 0
	}

	lead := pref.LeadTimeMinutes
	if lead <= 0 {
		lead = s.cfg.DefaultLeadTimeMinutes
	}
	ids := s.ScheduleFromDietPlan(pref.UserID, plan.PlanData, tokens, lead, pref.CustomTimings)
	return len(ids)
}

// deliver pushes one reminder to every token, isolating per-token
// failures and publishing a DeliveryEvent per attempt.
func (s *Service) deliver(ctx context.Context, userID, jobID, mealName, kind string, tokens []string, title, body string, data map[string]string) {
	for _, token := range tokens {
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.disp.Send(sendCtx, token, title, body, data)
		cancel()

		ev := DeliveryEvent{
			UserID: userID,
			JobID:  jobID,
			Meal:   mealName,
			Kind:   kind,
			Token:  dispatch.TruncateToken(token),
			OK:     err == nil,
		}
		if err != nil {
			ev.Error = err.Error()
			s.log.Warn("reminder send failed",
				logx.String("user", userID),
				logx.String("meal", mealName),
				logx.String("kind", kind),
				logx.String("token", ev.Token),
				logx.Err(err))
			s.publish(EventDispatchFailed, ev)
			continue
		}
		s.log.Debug("reminder sent",
			logx.String("user", userID),
			logx.String("meal", mealName),
			logx.String("kind", kind),
			logx.String("token", ev.Token))
		s.publish(EventDispatchSent, ev)
	}
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// reminderBody previews up to two plan items; with no items it falls back
// to a generic nudge naming the meal time.
func reminderBody(mealTime string, items []string) string {
	if len(items) == 0 {
		return fmt.Sprintf("It's almost %s - time for your scheduled meal!", mealTime)
	}
	preview := items
	if len(preview) > 2 {
		preview = preview[:2]
	}
	b := "Time for your meal! " + strings.Join(preview, ", ")
	if extra := len(items) - len(preview); extra > 0 {
		b += fmt.Sprintf(" +%d more", extra)
	}
	return b
}
