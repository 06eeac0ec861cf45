package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the canteenctl command tree.
func Execute(ctx context.Context) error {
	var (
		a    *app
		opts appOptions
	)

	root := &cobra.Command{
		Use:           "canteenctl",
		Short:         "Order from the campus canteen",
		Long:          "canteenctl talks to the canteen backend: browse the menu, stage a cart, place and track orders, and run the kitchen dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), opts, cmd.OutOrStdout())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend URL (default http://localhost:5000)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	flags.StringVar(&opts.storage, "storage", "", "state storage: file, memory, redis")

	// each constructor closes over &a so commands see the app built in
	// PersistentPreRunE
	root.AddCommand(
		newLoginCommand(&a),
		newLogoutCommand(&a),
		newWhoamiCommand(&a),
		newRegisterCommand(&a),
		newVerifyCommand(&a),
		newMenuCommand(&a),
		newCartCommand(&a),
		newOrderCommand(&a),
		newAdminCommand(&a),
		newWatchCommand(&a),
	)

	return root.ExecuteContext(ctx)
}
