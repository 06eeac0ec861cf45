package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/channel"
	"github.com/canteenhq/canteen-go/core"
	"github.com/canteenhq/canteen-go/menu"
	"github.com/canteenhq/canteen-go/order"
)

// newWatchCommand runs the long-lived session: live menu updates over the
// channel with a polling fallback, plus order polling at the cadence for
// the signed-in role. This is the closest the CLI gets to the kiosk UI.
func newWatchCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow menu and order updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if err := (*a).menu.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			syncer := menu.NewSyncer((*a).menu, (*a).config.Sync.MenuPollInterval, (*a).logger)
			defer syncer.Stop()

			live := (*a).newChannel(func() {
				fmt.Fprintln(out, "Live updates lost; falling back to polling.")
				syncer.UsePolling(ctx)
			})
			live.On(channel.EventMenuUpdate, func(data json.RawMessage) {
				entries, err := api.DecodeMenuEntries(data)
				if err != nil {
					(*a).logger.Warn("Ignoring malformed menu push", map[string]interface{}{
						"operation": "menu_push",
						"error":     err.Error(),
					})
					return
				}
				(*a).menu.ApplyPushUpdate(entries)
				fmt.Fprintf(out, "Menu updated (%d items).\n", len(entries))
			})

			if err := live.Connect(ctx, (*a).session.Token()); err != nil {
				fmt.Fprintln(out, "Live channel unavailable; polling instead.")
				syncer.UsePolling(ctx)
			} else {
				syncer.UsePush()
				defer live.Disconnect()
			}

			var poller *order.Poller
			switch (*a).session.Role() {
			case core.RoleAdmin, core.RoleStaff:
				poller = order.NewAdminPoller((*a).orders, (*a).config.Orders.AdminPollInterval, (*a).logger)
			default:
				poller = order.NewStudentPoller((*a).orders, (*a).config.Orders.StudentPollInterval, (*a).logger)
			}
			poller.Start(ctx)
			defer poller.Stop()

			fmt.Fprintln(out, "Watching. Press Ctrl-C to stop.")
			<-ctx.Done()
			return nil
		},
	}
}
