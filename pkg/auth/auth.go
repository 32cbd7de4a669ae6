// Package auth applies registry credentials to outgoing requests.
//
//go:generate mockgen -source=auth.go -destination=mocks/mock_auth.go -package=mocks
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/glorpus-work/spm/pkg/errors"
)

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	BasicAuthType  Type = "basic"
	HeaderAuthType Type = "header"
	BearerAuthType Type = "bearer"
)

// Credentials is the registry_auth section of the config. At most one of
// Token, Username or Headers may be set.
type Credentials struct {
	Token    string            `yaml:"token,omitempty"`
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// IsZero reports whether no credentials are configured.
func (c Credentials) IsZero() bool {
	return c.Token == "" && c.Username == "" && c.Password == "" && len(c.Headers) == 0
}

// New builds the authenticator described by c. It returns nil for empty credentials.
func New(c Credentials) (Authenticator, error) {
	kinds := 0
	if c.Token != "" {
		kinds++
	}
	if c.Username != "" || c.Password != "" {
		kinds++
	}
	if len(c.Headers) > 0 {
		kinds++
	}

	switch {
	case kinds == 0:
		return nil, nil
	case kinds > 1:
		return nil, fmt.Errorf("registry_auth: token, username/password and headers are mutually exclusive: %w", errors.ErrConfigValidation)
	case c.Token != "":
		return BearerAuth{Token: c.Token}, nil
	case len(c.Headers) > 0:
		return HeaderAuth{Headers: c.Headers}, nil
	case c.Username == "":
		return nil, fmt.Errorf("registry_auth: password without username: %w", errors.ErrConfigValidation)
	default:
		return BasicAuth{Username: c.Username, Password: c.Password}, nil
	}
}

// BasicAuth represents HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth sends fixed headers, e.g. an API key.
type HeaderAuth struct {
	Headers map[string]string
}

func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

func (b BearerAuth) Type() Type { return BearerAuthType }

// Scoped applies Inner only to requests below Prefix, so registry
// credentials are never sent to artifact hosts.
type Scoped struct {
	Prefix string
	Inner  Authenticator
}

func (s Scoped) Apply(req *http.Request) error {
	if s.Inner == nil || !strings.HasPrefix(req.URL.String(), strings.TrimSuffix(s.Prefix, "/")+"/") {
		return nil
	}
	return s.Inner.Apply(req)
}

func (s Scoped) Type() Type {
	if s.Inner == nil {
		return ""
	}
	return s.Inner.Type()
}
