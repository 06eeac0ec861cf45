package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/core"
	"github.com/canteenhq/canteen-go/order"
)

func newAdminCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Kitchen-side order management",
	}
	cmd.AddCommand(
		newAdminOrdersCommand(a),
		newAdminAdvanceCommand(a),
		newAdminSummaryCommand(a),
	)
	return cmd
}

func newAdminOrdersCommand(a **app) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show all orders (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			if _, err := (*a).orders.FetchAll(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			orders := (*a).orders.Orders()
			if pendingOnly {
				orders = (*a).orders.PendingOrders()
			}
			printOrders(cmd, orders, true)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only orders still in flight")
	return cmd
}

func newAdminAdvanceCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <order-id> [status]",
		Short: "Move an order forward; omit the status to take the next step",
		Long: "Orders move placed, preparing, ready, served in that sequence. " +
			"With no status argument the order takes its next forward step; " +
			"an explicit status must still be a legal transition.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := (*a).orders.FetchAll(ctx); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			var target core.OrderStatus
			if len(args) == 2 {
				target = core.OrderStatus(args[1])
			} else {
				current, ok := (*a).orders.Order(args[0])
				if !ok {
					return fmt.Errorf("no order with id %q", args[0])
				}
				next, ok := order.NextStatus(current.Status)
				if !ok {
					return fmt.Errorf("order %s is already %s", args[0], current.Status)
				}
				target = next
			}

			if err := (*a).orders.AdvanceStatus(ctx, args[0], target); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s.\n", args[0], target)
			return nil
		},
	}
}

func newAdminSummaryCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:     "today",
		Aliases: []string{"summary"},
		Short:   "Today's order count and revenue (admin)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			if _, err := (*a).orders.FetchAll(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			today := (*a).orders.OrdersCreatedToday()
			fmt.Fprintf(cmd.OutOrStdout(), "Orders today:   %d\n", len(today))
			fmt.Fprintf(cmd.OutOrStdout(), "Pending:        %d\n", len((*a).orders.PendingOrders()))
			fmt.Fprintf(cmd.OutOrStdout(), "Revenue today:  %.2f\n", (*a).orders.TodayRevenueTotal())
			return nil
		},
	}
}
