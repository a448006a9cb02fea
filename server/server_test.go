package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/jrsteele09/go-browser-auth/oauthclient/clientfake"
	"github.com/jrsteele09/go-browser-auth/server"
	"github.com/jrsteele09/go-browser-auth/sessions"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers 401 unless a bearer token is attached and remembers what it saw.
type fakeAPI struct {
	mu             sync.Mutex
	authorizations []string
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.authorizations = append(a.authorizations, r.Header.Get("Authorization"))
	a.mu.Unlock()
	if r.Header.Get("Authorization") == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *fakeAPI) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.authorizations) == 0 {
		return ""
	}
	return a.authorizations[len(a.authorizations)-1]
}

type testEnv struct {
	srv    *httptest.Server
	http   *http.Client
	client *clientfake.FakeClient
	api    *fakeAPI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("ALLOWED_ORIGINS", "https://spa.example.com")

	client := clientfake.NewFakeClient()
	client.ExchangeResult = &oauthclient.TokenSet{AccessToken: "tok", ExpiresIn: 3600, RefreshToken: "ref"}
	api := &fakeAPI{}

	s, err := server.New(config.New(), client, sessions.NewInMemoryRepo(), []byte("test-secret"), api)
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := srv.Client()
	httpClient.Jar = jar
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return &testEnv{srv: srv, http: httpClient, client: client, api: api}
}

func (e *testEnv) do(t *testing.T, method, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := e.http.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodGet, server.RouteCSRFToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["csrfToken"])
	return body["csrfToken"]
}

// login runs the flow through the explicit login route and returns where the callback sent the browser.
func (e *testEnv) login(t *testing.T, continueTarget string) string {
	t.Helper()
	resp := e.do(t, http.MethodGet, server.RouteLogin+"?continue="+url.QueryEscape(continueTarget), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "auth.example.com", authURL.Host)

	resp = e.do(t, http.MethodGet, server.RouteCallback+"?code=abc&state="+url.QueryEscape(authURL.Query().Get("state")), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return resp.Header.Get("Location")
}

func TestServer_LoginAndProxy(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, "/dashboard", env.login(t, "/dashboard"))
	require.Equal(t, 1, env.client.ExchangeCount())

	resp := env.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer tok", env.api.last())
}

func TestServer_LoginRejectsForeignContinueTarget(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, server.RouteLogin+"?continue="+url.QueryEscape("//evil.example"), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UnauthenticatedRequest(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/profile", http.Header{"Origin": {"https://spa.example.com"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Link"), `rel="authenticate"`)
	require.Equal(t, "https://spa.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "Link", resp.Header.Get("Access-Control-Expose-Headers"))
}

func TestServer_CorsOnlyForAllowedOrigins(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/profile", http.Header{"Origin": {"https://evil.example"}})
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp = env.do(t, http.MethodOptions, "/api/items", http.Header{
		"Origin":                        {"https://spa.example.com"},
		"Access-Control-Request-Method": {"POST"},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-CSRF-Token")
}

func TestServer_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "/")
	csrfToken := env.csrfToken(t)

	resp := env.do(t, http.MethodPost, server.RouteLogout, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, "logout is CSRF checked")

	resp = env.do(t, http.MethodPost, server.RouteLogout, http.Header{"X-Csrf-Token": {csrfToken}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, env.api.last())
}

func TestServer_UnsafeUpstreamRequestNeedsCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "/")
	csrfToken := env.csrfToken(t)

	resp := env.do(t, http.MethodPut, "/api/items/1", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/items/1", http.Header{"X-Csrf-Token": {csrfToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer tok", env.api.last())
}

func TestNew_Validation(t *testing.T) {
	c := config.New()
	_, err := server.New(c, clientfake.NewFakeClient(), sessions.NewInMemoryRepo(), []byte("secret"), nil)
	require.Error(t, err)

	_, err = server.New(c, clientfake.NewFakeClient(), sessions.NewInMemoryRepo(), nil, &fakeAPI{})
	require.Error(t, err)

	_, err = server.New(c, nil, sessions.NewInMemoryRepo(), []byte("secret"), &fakeAPI{})
	require.Error(t, err)
}

func TestNewUpstreamProxy(t *testing.T) {
	var got *http.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))
	defer backend.Close()

	proxy, err := server.NewUpstreamProxy(backend.URL + "/base")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://app.example.com/api/items", strings.NewReader("x=1"))
	req.Header.Set("Authorization", "Bearer tok")
	req.AddCookie(&http.Cookie{Name: sessions.CookieName, Value: "secret-session"})
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, got)
	require.Equal(t, "/base/api/items", got.URL.Path)
	require.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	require.Equal(t, "app.example.com", got.Header.Get("X-Forwarded-Host"))
	_, err = got.Cookie(sessions.CookieName)
	require.ErrorIs(t, err, http.ErrNoCookie, "the session cookie stays with the gateway")
	theme, err := got.Cookie("theme")
	require.NoError(t, err)
	require.Equal(t, "dark", theme.Value)
}

func TestNewUpstreamProxy_Errors(t *testing.T) {
	_, err := server.NewUpstreamProxy("not a url")
	require.Error(t, err)

	proxy, err := server.NewUpstreamProxy("http://127.0.0.1:1")
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
