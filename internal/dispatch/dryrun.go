package dispatch

import (
	"context"

	"dietnotify/pkg/logx"
)

// dryRun logs sends instead of delivering them. Every send succeeds.
// Useful for local runs without Firebase credentials.
type dryRun struct {
	log logx.Logger
}

func (d *dryRun) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	d.log.Info("dry-run push",
		logx.String("token", TruncateToken(token)),
		logx.String("title", title),
		logx.String("body", body),
		logx.Any("data", data))
	return nil
}

func (d *dryRun) SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (BatchResult, error) {
	d.log.Info("dry-run push batch",
		logx.Int("tokens", len(tokens)),
		logx.String("title", title))
	return BatchResult{Success: len(tokens)}, nil
}
