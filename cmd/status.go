package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/IniZio/skygear-sdk-go/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

const tokenExpiryWarning = 24 * time.Hour

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				container, err := app.requireContainer()
				if err != nil {
					return err
				}
				status := container.Status()
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"endpoint":         status.EndPoint,
					"api_key_set":      status.APIKeySet,
					"authenticated":    status.Authenticated,
					"user_id":          userID(status.User),
					"token_expires_at": status.TokenExpiresAt,
					"cache_response":   status.CacheResponse,
					"auto_pubsub":      status.AutoPubsub,
				})
			}

			return writeStatusOutput(cmd, app)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app) error {
	container, err := app.requireContainer()
	if err != nil {
		return err
	}

	rendered, err := app.statusRenderer(container.Status(), statusadapter.RenderOptions{
		Now:            app.now(),
		ExpiringWithin: tokenExpiryWarning,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
