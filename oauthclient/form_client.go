package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/internal/utils"
	"github.com/jrsteele09/go-browser-auth/oauth2"
)

// maxTokenResponseSize bounds how much of a token endpoint response is read.
const maxTokenResponseSize = 1 << 20

// FormClient sends application/x-www-form-urlencoded token requests directly,
// authenticating as a confidential client with HTTP Basic.
type FormClient struct {
	cfg        Config
	httpClient *http.Client
}

var _ Client = (*FormClient)(nil)

func NewFormClient(cfg Config) *FormClient {
	return &FormClient{cfg: cfg, httpClient: cfg.httpClient()}
}

func (c *FormClient) AuthorizeURL(req AuthorizeRequest) (string, error) {
	u, err := url.Parse(c.cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("[FormClient AuthorizeURL] invalid authorize endpoint: %w", err)
	}
	q := u.Query()
	q.Set(oauth2.ParamResponseType, string(oauth2.CodeResponseType))
	q.Set(oauth2.ParamClientID, c.cfg.ClientID)
	q.Set(oauth2.ParamRedirectURI, req.RedirectURI)
	if len(c.cfg.Scope) > 0 {
		q.Set(oauth2.ParamScope, strings.Join(c.cfg.Scope, " "))
	}
	q.Set(oauth2.ParamState, req.State)
	if req.CodeChallenge != "" {
		q.Set(oauth2.ParamCodeChallenge, req.CodeChallenge)
		q.Set(oauth2.ParamCodeChallengeMethod, string(oauth2.CodeMethodTypeS256))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *FormClient) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenSet, error) {
	form := url.Values{
		oauth2.ParamGrantType:   {string(oauth2.AuthorizationCodeGrant)},
		oauth2.ParamCode:        {code},
		oauth2.ParamRedirectURI: {redirectURI},
		oauth2.ParamClientID:    {c.cfg.ClientID},
	}
	if codeVerifier != "" {
		form.Set(oauth2.ParamCodeVerifier, codeVerifier)
	}
	return c.postToken(ctx, OpExchange, form)
}

func (c *FormClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{
		oauth2.ParamGrantType:    {string(oauth2.RefreshTokenGrant)},
		oauth2.ParamRefreshToken: {refreshToken},
		oauth2.ParamClientID:     {c.cfg.ClientID},
	}
	return c.postToken(ctx, OpRefresh, form)
}

func (c *FormClient) postToken(ctx context.Context, op string, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[FormClient] %s: %w", op, err)
	}
	// RFC 6749 section 2.3.1: credentials are form-urlencoded before Basic encoding
	req.SetBasicAuth(url.QueryEscape(c.cfg.ClientID), url.QueryEscape(c.cfg.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[FormClient] %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("[FormClient] %s: reading response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseToError(op, resp, body)
	}

	var tr oauth2.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "[FormClient] %s: %v", op, err)
	}
	if utils.Value(tr.AccessToken) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "[FormClient] %s: missing access_token", op)
	}
	if utils.Value(tr.ExpiresIn) < 0 {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "[FormClient] %s: negative expires_in", op)
	}

	return &TokenSet{
		AccessToken:  *tr.AccessToken,
		RefreshToken: utils.Value(tr.RefreshToken),
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		ExpiresIn:    utils.Value(tr.ExpiresIn),
	}, nil
}

// responseToError turns a non-2xx token endpoint response into an UpstreamError,
// picking up the OAuth2 error fields when the body is JSON.
func responseToError(op string, resp *http.Response, body []byte) error {
	upstream := &apperrors.UpstreamError{Op: op, StatusCode: resp.StatusCode}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var er oauth2.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			upstream.ErrorCode = er.Error
			upstream.Description = er.ErrorDescription
		}
	}
	return upstream
}
