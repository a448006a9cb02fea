package clientfake

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-browser-auth/oauthclient"
)

// ExchangeCall records one ExchangeCode invocation.
type ExchangeCall struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// FakeClient is an in-memory oauthclient.Client that records its calls.
type FakeClient struct {
	mu sync.Mutex

	AuthorizeEndpoint string

	ExchangeResult *oauthclient.TokenSet
	ExchangeErr    error
	RefreshResult  *oauthclient.TokenSet
	RefreshErr     error

	ExchangeCalls []ExchangeCall
	RefreshCalls  []string
}

var _ oauthclient.Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{AuthorizeEndpoint: "https://auth.example.com/authorize"}
}

func (f *FakeClient) AuthorizeURL(req oauthclient.AuthorizeRequest) (string, error) {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", "fake-client")
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("state", req.State)
	if req.CodeChallenge != "" {
		q.Set("code_challenge", req.CodeChallenge)
		q.Set("code_challenge_method", "S256")
	}
	return f.AuthorizeEndpoint + "?" + q.Encode(), nil
}

func (f *FakeClient) ExchangeCode(_ context.Context, code, redirectURI, codeVerifier string) (*oauthclient.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExchangeCalls = append(f.ExchangeCalls, ExchangeCall{Code: code, RedirectURI: redirectURI, CodeVerifier: codeVerifier})
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	set := *f.ExchangeResult
	return &set, nil
}

func (f *FakeClient) RefreshToken(_ context.Context, refreshToken string) (*oauthclient.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefreshCalls = append(f.RefreshCalls, refreshToken)
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	set := *f.RefreshResult
	return &set, nil
}

func (f *FakeClient) ExchangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ExchangeCalls)
}

func (f *FakeClient) RefreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.RefreshCalls)
}
