package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/core"
)

func newCartCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Stage items before placing an order",
	}
	cmd.AddCommand(
		newCartShowCommand(a),
		newCartAddCommand(a),
		newCartSetCommand(a),
		newCartRemoveCommand(a),
		newCartClearCommand(a),
	)
	return cmd
}

func newCartShowCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the staged cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := (*a).cart.Lines()
			if len(lines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cart is empty.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tNAME\tQTY\tPRICE\tLINE TOTAL")
			for _, line := range lines {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n",
					line.ItemID, line.Name, line.Quantity, line.Price,
					line.Price*float64(line.Quantity))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total (estimated): %.2f\n", (*a).cart.TotalAmount())
			return nil
		},
	}
}

func newCartAddCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item-id> [quantity]",
		Short: "Add a menu item to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			// the cart needs the item's name and price, so it goes through
			// the mirror rather than trusting a raw id
			if err := (*a).menu.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			entry, ok := (*a).menu.Item(args[0])
			if !ok {
				return fmt.Errorf("no menu item with id %q", args[0])
			}
			if !entry.Available {
				return fmt.Errorf("%q is not available right now", entry.Name)
			}

			(*a).cart.Add(ctx, entry)
			if len(args) == 2 {
				qty, err := strconv.Atoi(args[1])
				if err != nil || qty < 1 {
					return fmt.Errorf("quantity must be a positive number")
				}
				(*a).cart.SetQuantity(ctx, entry.ID, qty)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (x%d in cart).\n",
				entry.Name, (*a).cart.Quantity(entry.ID))
			return nil
		},
	}
}

func newCartSetCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <item-id> <quantity>",
		Short: "Set a cart line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return fmt.Errorf("quantity must be a non-negative number")
			}
			(*a).cart.SetQuantity(cmd.Context(), args[0], qty)
			return nil
		},
	}
}

func newCartRemoveCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).cart.Remove(cmd.Context(), args[0])
			return nil
		},
	}
}

func newCartClearCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).cart.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
			return nil
		},
	}
}
