package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dietnotify/internal/app"
)

func newTestPushCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-push <device-token>",
		Short: "Send a one-off test notification to a device token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Stop(context.Background())

			if !a.Engine().SendTestNotification(ctx, args[0]) {
				return fmt.Errorf("test notification failed")
			}
			fmt.Println("test notification sent")
			return nil
		},
	}
}
