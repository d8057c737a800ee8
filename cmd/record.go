package cmd

import (
	"context"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/spf13/cobra"
)

func newRecordCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Work with database records",
	}

	cmd.AddCommand(newRecordFetchCmd(app))

	return cmd
}

func newRecordFetchCmd(app *app) *cobra.Command {
	var private bool

	cmd := &cobra.Command{
		Use:   "fetch <type> <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			db := container.PublicDB()
			if private {
				db, err = container.PrivateDB()
				if err != nil {
					return err
				}
			}

			var record *domain.Record
			err = runRemoteCallSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching "+domain.RecordKey(args[0], args[1])+"...", func(ctx context.Context) error {
				var callErr error
				record, callErr = db.Fetch(ctx, args[0], args[1])
				return callErr
			})
			if err != nil {
				return err
			}

			return writeJSON(cmd, record)
		},
	}

	cmd.Flags().BoolVar(&private, "private", false, "Use the private database (requires login)")

	return cmd
}
