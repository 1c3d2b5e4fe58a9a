package main

import (
	"errors"
	"fmt"
	"time"

	"biblomnemon/internal/config"
	"biblomnemon/internal/platform/crypto"

	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with the configured API secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*ctx.configFlag)
			if err != nil {
				return err
			}
			if cfg.Server.APISecret == "" {
				return errors.New("no API secret configured (API_SECRET); the API accepts requests without a token")
			}
			if ttl <= 0 {
				return fmt.Errorf("ttl must be positive")
			}
			token, _, err := crypto.GenerateToken(cfg.Server.APISecret, subject, "owner", ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			if ctx.outputMode(cmd) == outputJSON {
				return writeJSON(cmd, map[string]any{
					"token":      token,
					"expires_at": time.Now().Add(ttl).UTC(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "owner", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	return cmd
}
