package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// OAuth2Config holds what the interactive flow needs.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string
	Timeout      time.Duration
}

const callbackPath = "/callback"

// AuthenticateOAuth2Interactive runs the browser consent flow. It serves a
// one-shot callback on CallbackAddr, prints the consent URL through prompt
// and returns the token granted for the read-only scopes.
func AuthenticateOAuth2Interactive(ctx context.Context, config OAuth2Config, prompt func(url string)) (*oauth2.Token, error) {
	if config.CallbackAddr == "" {
		config.CallbackAddr = "localhost:8085"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	listener, err := net.Listen("tcp", config.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	oauthCfg := oauthConfig(config.ClientID, config.ClientSecret, "http://"+listener.Addr().String()+callbackPath)
	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)
	fail := func(err error) {
		select {
		case errorChan <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		code := query.Get("code")
		if code == "" {
			fail(errors.New("no authorization code received"))
			http.Error(w, "No authorization code received. Please try again.", http.StatusBadRequest)
			return
		}
		select {
		case codeChan <- code:
		default:
		}
		_, _ = fmt.Fprint(w, "Authentication successful. You can close this window and return to the terminal.")
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(fmt.Errorf("callback server failed: %w", err))
		}
	}()
	defer func() { _ = server.Shutdown(context.WithoutCancel(ctx)) }()

	prompt(oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(config.Timeout):
		return nil, fmt.Errorf("authentication timeout: no response received within %s", config.Timeout)
	}

	token, err := oauthCfg.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := SaveToken(config.TokenFile, token); err != nil {
			return token, err
		}
		slog.Info("token saved", "file", config.TokenFile)
	}
	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("token file has no refresh token")
	}
	return token, nil
}

// SaveToken writes a token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}
