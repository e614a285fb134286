package config

import (
	"github.com/Veraticus/tablero/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google credentials from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or TABLERO_GOOGLE_* env vars)
// 2. Direct environment variables (GOOGLE_*)
// 3. Default values
//
// The result is not validated; credentials are only required when a
// configured source lives on Google.
func LoadSheetsConfig(v *viper.Viper) sheets.Config {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("google.service_account_path"))
	config.ClientID = v.GetString("google.client_id")
	config.ClientSecret = v.GetString("google.client_secret")
	config.RefreshToken = v.GetString("google.refresh_token")
	config.TokenFile = ExpandPath(v.GetString("google.token_file"))
	if d := v.GetDuration("google.request_timeout"); d > 0 {
		config.RequestTimeout = d
	}

	config.LoadFromEnv()
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	config.TokenFile = ExpandPath(config.TokenFile)

	return config
}
