package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/spf13/cobra"
)

func newLambdaCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda <name> [json-args]",
		Short: "Call a cloud function",
		Long:  "Call a cloud function. json-args is a JSON array for positional arguments or an object for keyword arguments; tagged values such as {\"$type\":\"date\"} are decoded first.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.requireContainer()
			if err != nil {
				return err
			}

			var lambdaArgs any
			if len(args) == 2 {
				lambdaArgs, err = parseLambdaArgs(args[1])
				if err != nil {
					return err
				}
			}

			var result any
			err = runRemoteCallSpinner(cmd.Context(), cmd.ErrOrStderr(), "Calling "+args[0]+"...", func(ctx context.Context) error {
				var callErr error
				result, callErr = container.Lambda(ctx, args[0], lambdaArgs)
				return callErr
			})
			if err != nil {
				return err
			}

			return writeJSON(cmd, result)
		},
	}
}

func parseLambdaArgs(raw string) (any, error) {
	var wire any
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("parse lambda arguments: %w", err)
	}

	args, err := codec.Decode(wire)
	if err != nil {
		return nil, fmt.Errorf("decode lambda arguments: %w", err)
	}
	return args, nil
}
