package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested by the readers. Both are read-only.
var Scopes = []string{sheets.SpreadsheetsReadonlyScope, drive.DriveReadonlyScope}

// NewHTTPClient returns an authenticated client for the Google APIs, using a
// service account key or an OAuth2 refresh token.
func NewHTTPClient(ctx context.Context, config Config) (*http.Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var tokenSource oauth2.TokenSource
	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token, err := refreshToken(config)
		if err != nil {
			return nil, err
		}
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	client := oauth2.NewClient(ctx, tokenSource)
	client.Timeout = config.RequestTimeout
	return client, nil
}

// NewClientOption wraps NewHTTPClient for the generated API constructors.
func NewClientOption(ctx context.Context, config Config) (option.ClientOption, error) {
	client, err := NewHTTPClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return option.WithHTTPClient(client), nil
}

func refreshToken(config Config) (*oauth2.Token, error) {
	if config.RefreshToken != "" {
		return &oauth2.Token{RefreshToken: config.RefreshToken, TokenType: "Bearer"}, nil
	}
	token, err := LoadToken(config.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("no refresh token configured and token file %s is unreadable (run `tablero auth`): %w", config.TokenFile, err)
	}
	return token, nil
}

func oauthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}
