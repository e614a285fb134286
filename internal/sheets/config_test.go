package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		want   error
		name   string
		config Config
	}{
		{
			name:   "service account",
			config: Config{ServiceAccountPath: "/etc/tablero/key.json"},
		},
		{
			name:   "oauth with refresh token",
			config: Config{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"},
		},
		{
			name:   "oauth with token file",
			config: Config{ClientID: "id", ClientSecret: "secret", TokenFile: "/tmp/token.json"},
		},
		{
			name:   "nothing",
			config: Config{},
			want:   ErrNoCredentials,
		},
		{
			name:   "oauth without secret",
			config: Config{ClientID: "id", RefreshToken: "refresh"},
			want:   ErrNoCredentials,
		},
		{
			name:   "both",
			config: Config{ServiceAccountPath: "key.json", ClientID: "id", ClientSecret: "secret", RefreshToken: "r"},
			want:   ErrMultipleCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "env-refresh")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_TOKEN_FILE", "")

	c := Config{ClientID: "configured"}
	c.LoadFromEnv()

	assert.Equal(t, "configured", c.ClientID, "configured values win over the environment")
	assert.Equal(t, "env-secret", c.ClientSecret)
	assert.Equal(t, "env-refresh", c.RefreshToken)
	assert.Empty(t, c.ServiceAccountPath)
}
