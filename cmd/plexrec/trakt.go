package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/trakt"
)

var traktAuthCmd = &cobra.Command{
	Use:   "trakt-auth",
	Short: "Authorize plexrec with Trakt using a device code",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Trakt.ClientID == "" || cfg.Trakt.ClientSecret == "" {
			return fmt.Errorf("%w: set trakt.client_id and trakt.client_secret first", config.ErrMissingCredentials)
		}

		ctx, stop := signalContext()
		defer stop()

		auth := trakt.NewAuth(cfg.Trakt, "")
		dc, err := auth.RequestDeviceCode(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Go to %s and enter the code: %s\n", dc.VerificationURL, dc.UserCode)
		fmt.Println("Waiting for authorization...")

		tok, err := auth.PollToken(ctx, dc)
		if err != nil {
			return fmt.Errorf("trakt authorization: %w", err)
		}

		if err := config.SaveTraktToken(resolvedCfg, tok); err != nil {
			return err
		}
		fmt.Printf("Authorized. Token saved to %s\n", resolvedCfg)
		return nil
	},
}
