package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"dietnotify/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, *configPath)
			if err != nil {
				return err
			}

			a.Start(ctx)
			// No-op outside systemd units.
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

			<-ctx.Done()

			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			a.Stop(stopCtx)
			return nil
		},
	}
}
