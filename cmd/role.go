package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/IniZio/skygear-sdk-go/internal/application"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/spf13/cobra"
)

func newRoleCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Inspect and configure user roles",
	}

	cmd.AddCommand(
		newRoleGetCmd(app),
		newRoleSetCmd(app, "admin", "Replace the admin role set", (*application.Container).SetAdminRole),
		newRoleSetCmd(app, "default", "Replace the roles given to new users", (*application.Container).SetDefaultRole),
		newRoleGrantCmd(app, "assign", "Assign roles to users", (*application.Container).AssignUserRole),
		newRoleGrantCmd(app, "revoke", "Revoke roles from users", (*application.Container).RevokeUserRole),
	)

	return cmd
}

func newRoleGetCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <user-id...>",
		Short: "Fetch the roles of users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			users := make([]any, 0, len(args))
			for _, id := range args {
				users = append(users, id)
			}

			var roles map[string][]domain.Role
			err = runRemoteCallSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching roles...", func(ctx context.Context) error {
				var callErr error
				roles, callErr = container.FetchUserRole(ctx, users...)
				return callErr
			})
			if err != nil {
				return err
			}

			if asJSON {
				names := make(map[string]any, len(roles))
				for id, userRoles := range roles {
					names[id] = domain.RoleNames(userRoles)
				}
				return writeJSON(cmd, names)
			}

			rendered, err := app.rolesRenderer(roles)
			if err != nil {
				return fmt.Errorf("render roles: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

type setRolesFunc func(*application.Container, context.Context, []domain.Role) ([]string, error)

func newRoleSetCmd(app *app, use, short string, set setRolesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <role...>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			names, err := set(container, cmd.Context(), domain.RolesFromNames(args))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return err
		},
	}
}

type grantRolesFunc func(*application.Container, context.Context, []any, []domain.Role) error

func newRoleGrantCmd(app *app, use, short string, grant grantRolesFunc) *cobra.Command {
	var users []string
	var roles []string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			targets := make([]any, 0, len(users))
			for _, id := range users {
				targets = append(targets, id)
			}

			if err := grant(container, cmd.Context(), targets, domain.RolesFromNames(roles)); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d user(s), %d role(s)\n", use, len(users), len(roles))
			return err
		},
	}

	cmd.Flags().StringSliceVar(&users, "user", nil, "User ID (repeatable)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role name (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
