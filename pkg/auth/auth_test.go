package auth_test

import (
	"net/http"
	"testing"

	"github.com/glorpus-work/spm/pkg/auth"
	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuth(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		expected string
	}{
		{
			name:     "valid credentials",
			username: "user",
			password: "pass",
			expected: "Basic dXNlcjpwYXNz", // base64("user:pass")
		},
		{
			name:     "empty credentials",
			username: "",
			password: "",
			expected: "Basic Og==", // base64(":")
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "http://example.com", nil)
			basicAuth := auth.BasicAuth{
				Username: tt.username,
				Password: tt.password,
			}

			err := basicAuth.Apply(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Header.Get("Authorization"))
			assert.Equal(t, auth.BasicAuthType, basicAuth.Type())
		})
	}
}

func TestHeaderAuth(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	headerAuth := auth.HeaderAuth{Headers: map[string]string{"X-API-Key": "test-key"}}

	require.NoError(t, headerAuth.Apply(req))
	assert.Equal(t, "test-key", req.Header.Get("X-Api-Key"))
	assert.Equal(t, auth.HeaderAuthType, headerAuth.Type())
}

func TestBearerAuth(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	bearerAuth := auth.BearerAuth{Token: "test-token-123"}

	require.NoError(t, bearerAuth.Apply(req))
	assert.Equal(t, "Bearer test-token-123", req.Header.Get("Authorization"))
	assert.Equal(t, auth.BearerAuthType, bearerAuth.Type())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		creds   auth.Credentials
		want    auth.Type
		wantErr bool
	}{
		{name: "empty", creds: auth.Credentials{}},
		{name: "token", creds: auth.Credentials{Token: "t"}, want: auth.BearerAuthType},
		{name: "basic", creds: auth.Credentials{Username: "u", Password: "p"}, want: auth.BasicAuthType},
		{name: "headers", creds: auth.Credentials{Headers: map[string]string{"X-Key": "k"}}, want: auth.HeaderAuthType},
		{name: "token and basic", creds: auth.Credentials{Token: "t", Username: "u"}, wantErr: true},
		{name: "password only", creds: auth.Credentials{Password: "p"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := auth.New(tt.creds)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrConfigValidation)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, a)
				assert.True(t, tt.creds.IsZero())
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, tt.want, a.Type())
		})
	}
}

func TestScoped(t *testing.T) {
	scoped := auth.Scoped{Prefix: "https://registry.example/packages/", Inner: auth.BearerAuth{Token: "secret"}}
	assert.Equal(t, auth.BearerAuthType, scoped.Type())

	inside, _ := http.NewRequest("GET", "https://registry.example/packages/acme/widgets/spm.json", nil)
	require.NoError(t, scoped.Apply(inside))
	assert.Equal(t, "Bearer secret", inside.Header.Get("Authorization"))

	outside, _ := http.NewRequest("GET", "https://cdn.example/artifact.bin", nil)
	require.NoError(t, scoped.Apply(outside))
	assert.Empty(t, outside.Header.Get("Authorization"))

	sibling, _ := http.NewRequest("GET", "https://registry.example/packages-evil/x", nil)
	require.NoError(t, scoped.Apply(sibling))
	assert.Empty(t, sibling.Header.Get("Authorization"))
}
