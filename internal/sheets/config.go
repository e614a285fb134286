// Package sheets reads spreadsheets from Google Sheets, Google Drive and
// local workbook files into raw sheets.
package sheets

import (
	"errors"
	"os"
	"time"
)

// Authentication errors.
var (
	ErrNoCredentials       = errors.New("no Google authentication method configured")
	ErrMultipleCredentials = errors.New("multiple authentication methods configured; use either OAuth2 or service account")
)

// Config holds the Google credentials used by the readers.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	TokenFile          string
	RequestTimeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 60 * time.Second,
	}
}

// LoadFromEnv fills empty fields from GOOGLE_* environment variables.
func (c *Config) LoadFromEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&c.ClientID, "GOOGLE_CLIENT_ID")
	fill(&c.ClientSecret, "GOOGLE_CLIENT_SECRET")
	fill(&c.RefreshToken, "GOOGLE_REFRESH_TOKEN")
	fill(&c.ServiceAccountPath, "GOOGLE_SERVICE_ACCOUNT_PATH")
	fill(&c.ServiceAccountPath, "GOOGLE_APPLICATION_CREDENTIALS")
	fill(&c.TokenFile, "GOOGLE_TOKEN_FILE")
}

// HasOAuth reports whether OAuth2 client credentials are present. A refresh
// token may come from the config or from the token file.
func (c *Config) HasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.HasOAuth()
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return ErrNoCredentials
	}
	if hasOAuth && hasServiceAccount {
		return ErrMultipleCredentials
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout cannot be negative")
	}
	return nil
}
