package oauthclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Discover reads the issuer's OpenID configuration and returns its authorize and token endpoints.
func Discover(ctx context.Context, issuer string, httpClient *http.Client) (Endpoints, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("[oauthclient Discover] failed to create OIDC provider: %w", err)
	}
	endpoint := provider.Endpoint()
	return Endpoints{
		AuthorizeURL: endpoint.AuthURL,
		TokenURL:     endpoint.TokenURL,
	}, nil
}
