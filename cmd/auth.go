package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Skygear session",
	}

	cmd.AddCommand(
		newAuthLoginCmd(app, "login", "Log in with username and password"),
		newAuthLoginCmd(app, "signup", "Create a user and log in"),
		newAuthLogoutCmd(app),
		newAuthWhoAmICmd(app),
	)

	return cmd
}

func newAuthLoginCmd(app *app, use, short string) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			authenticate := container.Login
			if use == "signup" {
				authenticate = container.Signup
			}

			var user *domain.Record
			err = runRemoteCallSpinner(cmd.Context(), cmd.ErrOrStderr(), "Contacting "+container.EndPoint()+"...", func(ctx context.Context) error {
				var callErr error
				user, callErr = authenticate(ctx, username, password)
				return callErr
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newAuthLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}
			if container.AccessToken() == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return err
			}

			logoutErr := container.Logout(cmd.Context())
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out"); err != nil {
				return errors.Join(logoutErr, err)
			}
			if logoutErr != nil {
				return fmt.Errorf("local session cleared, server logout failed: %w", logoutErr)
			}
			return nil
		},
	}
}

func newAuthWhoAmICmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Refresh and show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			user, err := container.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, user)
			}

			return writeStatusOutput(cmd, app)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the user record as JSON")

	return cmd
}
