package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/jrsteele09/go-browser-auth/server"
	"github.com/stretchr/testify/require"
)

func TestNewOAuthClient(t *testing.T) {
	t.Run("requires endpoints", func(t *testing.T) {
		t.Setenv("OAUTH2_CLIENT_ID", "gateway")
		_, err := server.NewOAuthClient(context.Background(), config.New())
		require.Error(t, err)
	})

	t.Run("requires client id", func(t *testing.T) {
		t.Setenv("OAUTH2_AUTHORIZE_ENDPOINT", "https://auth.example.com/authorize")
		t.Setenv("OAUTH2_TOKEN_ENDPOINT", "https://auth.example.com/token")
		_, err := server.NewOAuthClient(context.Background(), config.New())
		require.Error(t, err)
	})

	t.Run("form client by default", func(t *testing.T) {
		t.Setenv("OAUTH2_AUTHORIZE_ENDPOINT", "https://auth.example.com/authorize")
		t.Setenv("OAUTH2_TOKEN_ENDPOINT", "https://auth.example.com/token")
		t.Setenv("OAUTH2_CLIENT_ID", "gateway")
		client, err := server.NewOAuthClient(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &oauthclient.FormClient{}, client)
	})

	t.Run("library client", func(t *testing.T) {
		t.Setenv("OAUTH2_AUTHORIZE_ENDPOINT", "https://auth.example.com/authorize")
		t.Setenv("OAUTH2_TOKEN_ENDPOINT", "https://auth.example.com/token")
		t.Setenv("OAUTH2_CLIENT_ID", "gateway")
		t.Setenv("OAUTH2_CLIENT", "library")
		client, err := server.NewOAuthClient(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &oauthclient.LibraryClient{}, client)
	})

	t.Run("discovers endpoints from issuer", func(t *testing.T) {
		var issuer string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"issuer":                 issuer,
				"authorization_endpoint": issuer + "/authorize",
				"token_endpoint":         issuer + "/token",
			})
		}))
		defer srv.Close()
		issuer = srv.URL

		t.Setenv("OAUTH2_ISSUER", issuer)
		t.Setenv("OAUTH2_CLIENT_ID", "gateway")
		client, err := server.NewOAuthClient(context.Background(), config.New())
		require.NoError(t, err)

		authURL, err := client.AuthorizeURL(oauthclient.AuthorizeRequest{RedirectURI: "http://localhost:8080/_browser-auth", State: "s"})
		require.NoError(t, err)
		require.Contains(t, authURL, issuer+"/authorize?")
	})
}
