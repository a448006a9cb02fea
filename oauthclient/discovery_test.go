package oauthclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	var issuer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/oauth2/authorize",
			"token_endpoint":         issuer + "/oauth2/token",
			"jwks_uri":               issuer + "/.well-known/jwks.json",
		})
	}))
	defer srv.Close()
	issuer = srv.URL

	endpoints, err := oauthclient.Discover(context.Background(), issuer, srv.Client())
	require.NoError(t, err)
	require.Equal(t, issuer+"/oauth2/authorize", endpoints.AuthorizeURL)
	require.Equal(t, issuer+"/oauth2/token", endpoints.TokenURL)
}

func TestDiscover_IssuerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := oauthclient.Discover(context.Background(), srv.URL, srv.Client())
	require.Error(t, err)
}
