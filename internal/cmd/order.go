package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/core"
)

func newOrderCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and track orders",
	}
	cmd.AddCommand(
		newOrderListCommand(a),
		newOrderPlaceCommand(a),
		newOrderCancelCommand(a),
		newOrderStatusCommand(a),
	)
	return cmd
}

func newOrderStatusCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id>",
		Short: "Show one order's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			if _, err := (*a).orders.FetchMine(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			ord, ok := (*a).orders.Order(args[0])
			if !ok {
				return fmt.Errorf("no order with id %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Order %s: %s\n", ord.ID, ord.Status)
			fmt.Fprintf(out, "Total: %.2f\n", ord.Total)
			fmt.Fprintf(out, "Placed: %s\n", ord.CreatedAt.Local().Format(time.RFC822))
			if remaining := (*a).orders.CancellationTimeRemaining(ord); remaining > 0 {
				fmt.Fprintf(out, "Cancellable for another %s.\n", remaining.Round(time.Second))
			}
			return nil
		},
	}
}

func newOrderListCommand(a **app) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			orders, err := (*a).orders.FetchMine(ctx)
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			printOrders(cmd, orders, false)

			if !follow {
				return nil
			}

			// live view: refetch on the student cadence until interrupted
			ticker := time.NewTicker((*a).config.Orders.StudentPollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					orders, err := (*a).orders.FetchMine(ctx)
					if err != nil {
						continue
					}
					printOrders(cmd, orders, false)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "keep refreshing until interrupted")
	return cmd
}

func newOrderPlaceCommand(a **app) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order from the staged cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			items := (*a).cart.OrderItems()
			if len(items) == 0 {
				return fmt.Errorf("cart is empty; add items with 'canteenctl cart add'")
			}

			confirmed, err := (*a).orders.Place(ctx, items, notes)
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			// the cart cleared only after the backend confirmed; the marker
			// covers a crash between these two steps
			(*a).cart.MarkPlaced(ctx, confirmed.ID)
			(*a).cart.Clear(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed. Total: %.2f\n", confirmed.ID, confirmed.Total)
			if remaining := (*a).orders.CancellationTimeRemaining(confirmed); remaining > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "You can cancel within the next %s.\n", remaining.Round(time.Second))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "kitchen notes for the order")
	return cmd
}

func newOrderCancelCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a recent order (within 90 seconds of placing it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			// load the order so the window check has a creation time
			if _, err := (*a).orders.FetchMine(ctx); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			if err := (*a).orders.Cancel(ctx, args[0]); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Order cancelled.")
			return nil
		},
	}
}

func printOrders(cmd *cobra.Command, orders []core.Order, withStudent bool) {
	out := cmd.OutOrStdout()
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if withStudent {
		fmt.Fprintln(w, "ID\tSTUDENT\tSTATUS\tTOTAL\tPLACED")
	} else {
		fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tPLACED")
	}
	for _, ord := range orders {
		placed := ord.CreatedAt.Local().Format("15:04:05")
		if withStudent {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", ord.ID, ord.StudentName, ord.Status, ord.Total, placed)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", ord.ID, ord.Status, ord.Total, placed)
		}
	}
	_ = w.Flush()
}
