package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcode-github/property_rentals/backend/config"
	"github.com/dcode-github/property_rentals/backend/utils"
)

func tokenCmd(opts *rootOptions) *cobra.Command {
	var uid, email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the jwt auth provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Auth.Provider != config.ProviderJWT {
				return fmt.Errorf("tokens are issued by %s, not this server", cfg.Auth.Provider)
			}
			token, err := utils.NewTokenIssuer(cfg.Auth.JWTKey, cfg.Auth.TokenTTL).GenerateJWT(uid, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "User id to issue the token for")
	cmd.Flags().StringVar(&email, "email", "", "Email carried in the token")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
