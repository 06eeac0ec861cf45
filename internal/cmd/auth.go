package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/core"
)

func newLoginCommand(a **app) *cobra.Command {
	var student bool

	cmd := &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Sign in as admin or staff, or as a student with --student",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var identity core.Identity
			var err error
			if student {
				identity, err = (*a).session.LoginStudent(ctx, args[0], args[1])
			} else {
				identity, err = (*a).session.Login(ctx, args[0], args[1])
			}
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", identity.Name, identity.Role)
			return nil
		},
	}
	cmd.Flags().BoolVar(&student, "student", false, "sign in with a student registration number")
	return cmd
}

func newLogoutCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).session.Logout(cmd.Context())
			return nil
		},
	}
}

func newWhoamiCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, ok := (*a).session.Identity()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", identity.Name, identity.Role)
			if identity.RegistrationNumber != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Registration no: %s\n", identity.RegistrationNumber)
			}
			if identity.Email != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Email: %s\n", identity.Email)
			}
			return nil
		},
	}
}

func newRegisterCommand(a **app) *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a student account (sends an OTP by email)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := (*a).api.StudentRegister(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			if message == "" {
				message = "Registration started. Check your email for the OTP, then run 'canteenctl verify'."
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Name, "name", "", "full name")
	flags.StringVar(&req.RegistrationNo, "reg-no", "", "registration number")
	flags.StringVar(&req.Email, "email", "", "email address for the OTP")
	flags.StringVar(&req.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("reg-no")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <reg-no> <otp>",
		Short: "Complete registration with the emailed OTP and sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			identity, token, err := (*a).api.StudentVerify(ctx, api.VerifyRequest{
				RegistrationNo: args[0],
				OTP:            args[1],
			})
			if err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}
			if err := (*a).session.AdoptIdentity(ctx, identity, token); err != nil {
				return fmt.Errorf("%s", core.UserMessage(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Verified. Signed in as %s.\n", identity.Name)
			return nil
		},
	}
}
