package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/rs/zerolog/log"
)

// NewOAuthClient builds the configured token endpoint client. Endpoints that
// are not set explicitly are discovered from the issuer when one is configured.
func NewOAuthClient(ctx context.Context, c config.OAuthConfig) (oauthclient.Client, error) {
	httpClient := &http.Client{Timeout: c.GetHTTPTimeout()}

	endpoints := oauthclient.Endpoints{
		AuthorizeURL: c.GetAuthorizeEndpoint(),
		TokenURL:     c.GetTokenEndpoint(),
	}
	if issuer := c.GetIssuer(); issuer != "" && (endpoints.AuthorizeURL == "" || endpoints.TokenURL == "") {
		discovered, err := oauthclient.Discover(ctx, issuer, httpClient)
		if err != nil {
			return nil, fmt.Errorf("[server NewOAuthClient] %w", err)
		}
		if endpoints.AuthorizeURL == "" {
			endpoints.AuthorizeURL = discovered.AuthorizeURL
		}
		if endpoints.TokenURL == "" {
			endpoints.TokenURL = discovered.TokenURL
		}
		log.Info().Str("issuer", issuer).Msg("discovered oauth2 endpoints")
	}
	if endpoints.AuthorizeURL == "" || endpoints.TokenURL == "" {
		return nil, errors.New("[server NewOAuthClient] authorize and token endpoints are required (or set OAUTH2_ISSUER)")
	}
	if c.GetClientID() == "" {
		return nil, errors.New("[server NewOAuthClient] OAUTH2_CLIENT_ID is required")
	}

	cfg := oauthclient.Config{
		Endpoints:    endpoints,
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		Scope:        c.GetScope(),
		HTTPClient:   httpClient,
	}
	if c.GetClientKind() == config.ClientKindLibrary {
		return oauthclient.NewLibraryClient(cfg), nil
	}
	return oauthclient.NewFormClient(cfg), nil
}
