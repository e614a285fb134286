package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/tablero/internal/cli"
	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/config"
	"github.com/Veraticus/tablero/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only access to Google Sheets and Drive",
		Long: `Authorize tablero with your Google account using OAuth2.

This command will:
1. Print a consent URL to open in your browser
2. Receive the authorization on a local callback
3. Save the refresh token to google.token_file

Service accounts (google.service_account_path) do not need this step.`,
		RunE: runAuth,
	}

	cmd.Flags().String("client-id", "", "OAuth2 client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 client secret (overrides config)")
	cmd.Flags().String("callback-addr", "localhost:8085", "address for the local OAuth2 callback")

	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	google := config.LoadSheetsConfig(viper.GetViper())

	// Override with flags if provided
	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		google.ClientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		google.ClientSecret = flagSecret
	}
	callbackAddr, _ := cmd.Flags().GetString("callback-addr")

	if google.ClientID == "" || google.ClientSecret == "" {
		return common.NewUserError(
			"OAuth2 credentials not found. Set google.client_id and google.client_secret in config or use --client-id and --client-secret",
			common.ErrMissingConfig)
	}
	if google.TokenFile == "" {
		return common.NewUserError("google.token_file is empty", common.ErrMissingConfig)
	}

	slog.Info("Starting Google authentication", "token_file", google.TokenFile)

	out := cmd.OutOrStdout()
	_, err := sheets.AuthenticateOAuth2Interactive(ctx, sheets.OAuth2Config{
		ClientID:     google.ClientID,
		ClientSecret: google.ClientSecret,
		TokenFile:    google.TokenFile,
		CallbackAddr: callbackAddr,
	}, func(url string) {
		fmt.Fprintln(out, cli.FormatInfo("Open this URL in your browser to authorize tablero:"))
		fmt.Fprintln(out, url)
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Authentication successful! Token saved to "+google.TokenFile))
	if google.ServiceAccountPath != "" {
		fmt.Fprintln(os.Stderr, cli.FormatWarning("google.service_account_path is also set; remove it so the OAuth2 token is used"))
	}
	return nil
}
