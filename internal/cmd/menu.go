package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/core"
	"github.com/canteenhq/canteen-go/menu"
)

func newMenuCommand(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Browse and manage the menu",
	}
	cmd.AddCommand(
		newMenuListCommand(a),
		newMenuCategoriesCommand(a),
		newMenuAddCommand(a),
		newMenuUpdateCommand(a),
		newMenuRemoveCommand(a),
		newMenuToggleCommand(a),
	)
	return cmd
}

func newMenuListCommand(a **app) *cobra.Command {
	var (
		category      string
		availableOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the current menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			if err := (*a).menu.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			entries := (*a).menu.ItemsByCategory(category)
			if availableOnly {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Available {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No menu items.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tAVAILABLE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%v\n",
					e.ID, e.Name, e.Price, e.Category.Name, e.Available)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category id, slug or name")
	cmd.Flags().BoolVar(&availableOnly, "available", false, "only show items currently available")
	return cmd
}

func newMenuCategoriesCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List menu categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireSession(); err != nil {
				return err
			}
			if err := (*a).menu.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSLUG")
			for _, c := range (*a).menu.Categories() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Slug)
			}
			return w.Flush()
		},
	}
}

func newMenuAddCommand(a **app) *cobra.Command {
	var in menu.MenuItemInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a menu item (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			if err := (*a).menu.Create(cmd.Context(), in); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q.\n", in.Name)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Name, "name", "", "item name")
	flags.StringVar(&in.Description, "description", "", "item description")
	flags.Float64Var(&in.Price, "price", 0, "item price")
	flags.StringVar(&in.CategoryID, "category", "", "category id")
	flags.StringVar(&in.ImageURL, "image", "", "image URL")
	flags.BoolVar(&in.Available, "available", true, "whether the item is orderable")
	flags.StringSliceVar(&in.Tags, "tag", nil, "item tags (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newMenuUpdateCommand(a **app) *cobra.Command {
	var (
		name        string
		description string
		price       float64
		category    string
		image       string
		available   bool
	)

	cmd := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Update a menu item (admin); only the flags you pass change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}

			var in menu.MenuItemUpdate
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("price") {
				in.Price = &price
			}
			if cmd.Flags().Changed("category") {
				in.CategoryID = &category
			}
			if cmd.Flags().Changed("image") {
				in.ImageURL = &image
			}
			if cmd.Flags().Changed("available") {
				in.Available = &available
			}

			if err := (*a).menu.Update(cmd.Context(), args[0], in); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated.")
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "item name")
	flags.StringVar(&description, "description", "", "item description")
	flags.Float64Var(&price, "price", 0, "item price")
	flags.StringVar(&category, "category", "", "category id")
	flags.StringVar(&image, "image", "", "image URL")
	flags.BoolVar(&available, "available", true, "whether the item is orderable")
	return cmd
}

func newMenuRemoveCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <item-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a menu item (admin)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			if err := (*a).menu.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
}

func newMenuToggleCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Flip a menu item's availability (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).requireStaff(); err != nil {
				return err
			}
			// the toggle needs the current flag, so refresh first
			if err := (*a).menu.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			if err := (*a).menu.ToggleAvailability(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Toggled.")
			return nil
		},
	}
}
