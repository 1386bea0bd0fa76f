package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"dietnotify/pkg/logx"
)

const defaultRatePerSec = 10

// fcmDispatcher delivers web push notifications through Firebase Cloud
// Messaging. A token bucket ahead of every call keeps bursts (catch-up
// after a long outage, bulk restore) inside FCM's comfort zone.
type fcmDispatcher struct {
	client  *messaging.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func newFCM(ctx context.Context, cfg Config, log logx.Logger) (*fcmDispatcher, error) {
	if strings.TrimSpace(cfg.CredentialsPath) == "" {
		return nil, errors.New("fcm: credentials_path required")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("fcm: init app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: messaging client: %w", err)
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	return &fcmDispatcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// Apply retunes the send rate limiter in place.
func (d *fcmDispatcher) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	d.limiter.SetLimit(rate.Limit(rps))
	d.limiter.SetBurst(rps)
}

func (d *fcmDispatcher) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Webpush:      webpushConfig(true),
	}
	id, err := d.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("%w: %s", ErrUnregistered, TruncateToken(token))
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	d.log.Debug("push delivered", logx.String("message_id", id), logx.String("token", TruncateToken(token)))
	return nil
}

func (d *fcmDispatcher) SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (BatchResult, error) {
	if len(tokens) == 0 {
		return BatchResult{}, nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return BatchResult{Failure: len(tokens)}, err
	}
	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Webpush:      webpushConfig(false),
	}
	resp, err := d.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return BatchResult{Failure: len(tokens)}, fmt.Errorf("fcm multicast: %w", err)
	}
	res := BatchResult{Success: resp.SuccessCount, Failure: resp.FailureCount}
	d.log.Debug("push batch delivered", logx.Int("success", res.Success), logx.Int("failure", res.Failure))
	return res, nil
}

func webpushConfig(withActions bool) *messaging.WebpushConfig {
	n := &messaging.WebpushNotification{
		Icon:    "/static/img/logo.svg",
		Badge:   "/static/img/logo.svg",
		Vibrate: []int{200, 100, 200},
	}
	if withActions {
		n.RequireInteraction = true
		n.Actions = []*messaging.WebpushNotificationAction{
			{Action: "view", Title: "View Diet Plan"},
			{Action: "dismiss", Title: "Dismiss"},
		}
	}
	return &messaging.WebpushConfig{Notification: n}
}

func boolPtr(b bool) *bool { return &b }
