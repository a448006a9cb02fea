// Package oauthclient talks to the authorization server on behalf of the
// gateway. Two interchangeable clients are provided: FormClient builds the
// token requests itself, LibraryClient delegates to golang.org/x/oauth2.
package oauthclient

import (
	"context"
	"net/http"
	"time"
)

// Operation names used in error messages.
const (
	OpExchange = "validating authentication code"
	OpRefresh  = "refreshing tokens on OAuth2 server"
)

// TokenSet is a successful token endpoint response.
type TokenSet struct {
	AccessToken  string
	RefreshToken string // empty when the server did not issue one
	TokenType    string
	Scope        string
	ExpiresIn    int64 // seconds; 0 when the server did not say
}

// AuthorizeRequest carries the per-flow values of an authorization request.
type AuthorizeRequest struct {
	RedirectURI   string
	State         string
	CodeChallenge string // S256 challenge; empty disables PKCE
}

// Client is the OAuth2 capability the browser auth flow depends on.
type Client interface {
	// AuthorizeURL builds the URL the browser is sent to. It makes no network call.
	AuthorizeURL(req AuthorizeRequest) (string, error)
	// ExchangeCode redeems an authorization code. codeVerifier may be empty when PKCE is off.
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenSet, error)
	// RefreshToken obtains a new token set with the refresh_token grant.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// Endpoints are the authorization server URLs used by the client.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
}

// Config is shared by both client implementations.
type Config struct {
	Endpoints
	ClientID     string
	ClientSecret string
	Scope        []string
	HTTPClient   *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
