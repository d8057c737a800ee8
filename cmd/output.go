package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/spf13/cobra"
)

// writeJSON prints v in its wire form so domain values keep their type tags.
func writeJSON(cmd *cobra.Command, v any) error {
	wire, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(wire)
}

func userID(user *domain.Record) string {
	if user == nil {
		return ""
	}
	return user.ID
}
