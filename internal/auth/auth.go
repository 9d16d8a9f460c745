// Package auth verifies the credentials an authenticated session carries.
package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoCredentials means the request carries no credential this authenticator understands.
var ErrNoCredentials = errors.New("no credentials")

// Identity is an authenticated principal from the external identity provider.
type Identity struct {
	// ExternalID is stable per principal and keys the owner upsert.
	ExternalID string
	// Token is the bearer token to forward to the worker; empty when the provider issues none.
	Token    string
	Provider string
}

// Authenticator extracts and verifies an identity from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Chain tries each authenticator in order. The first that finds credentials decides.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (Identity, error) {
	for _, a := range c {
		id, err := a.Authenticate(r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return id, err
	}
	return Identity{}, ErrNoCredentials
}

// authorizationScheme splits "Scheme value" headers; scheme comparison is case-insensitive.
func authorizationScheme(r *http.Request) (string, string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}
