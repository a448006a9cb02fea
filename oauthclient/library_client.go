package oauthclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/oauth2"
	xoauth2 "golang.org/x/oauth2"
)

// LibraryClient delegates the token endpoint calls to golang.org/x/oauth2.
type LibraryClient struct {
	cfg        *xoauth2.Config
	httpClient *http.Client
}

var _ Client = (*LibraryClient)(nil)

func NewLibraryClient(cfg Config) *LibraryClient {
	return &LibraryClient{
		cfg: &xoauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scope,
			Endpoint: xoauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: xoauth2.AuthStyleInHeader,
			},
			// RedirectURL stays empty: it is supplied per flow
		},
		httpClient: cfg.httpClient(),
	}
}

func (c *LibraryClient) AuthorizeURL(req AuthorizeRequest) (string, error) {
	opts := []xoauth2.AuthCodeOption{
		xoauth2.SetAuthURLParam(oauth2.ParamRedirectURI, req.RedirectURI),
	}
	if req.CodeChallenge != "" {
		opts = append(opts,
			xoauth2.SetAuthURLParam(oauth2.ParamCodeChallenge, req.CodeChallenge),
			xoauth2.SetAuthURLParam(oauth2.ParamCodeChallengeMethod, string(oauth2.CodeMethodTypeS256)),
		)
	}
	return c.cfg.AuthCodeURL(req.State, opts...), nil
}

func (c *LibraryClient) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenSet, error) {
	opts := []xoauth2.AuthCodeOption{
		xoauth2.SetAuthURLParam(oauth2.ParamRedirectURI, redirectURI),
		xoauth2.SetAuthURLParam(oauth2.ParamClientID, c.cfg.ClientID),
	}
	if codeVerifier != "" {
		opts = append(opts, xoauth2.VerifierOption(codeVerifier))
	}
	tok, err := c.cfg.Exchange(c.context(ctx), code, opts...)
	if err != nil {
		return nil, convertError(OpExchange, err)
	}
	return toTokenSet(tok), nil
}

// RefreshToken authenticates with HTTP Basic only. x/oauth2's TokenSource does not
// repeat client_id in the form body the way FormClient does (RFC 6749 section 6).
func (c *LibraryClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	tok, err := c.cfg.TokenSource(c.context(ctx), &xoauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, convertError(OpRefresh, err)
	}
	return toTokenSet(tok), nil
}

func (c *LibraryClient) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, xoauth2.HTTPClient, c.httpClient)
}

func toTokenSet(tok *xoauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if scope, ok := tok.Extra(oauth2.ParamScope).(string); ok {
		set.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		// x/oauth2 turned expires_in into an absolute time just now; turn it back
		set.ExpiresIn = int64(math.Max(1, math.Round(time.Until(tok.Expiry).Seconds())))
	}
	return set
}

// convertError maps x/oauth2 failures onto the same errors FormClient returns.
// A 2xx body x/oauth2 rejects (no access_token) is ErrMalformedResponse.
func convertError(op string, err error) error {
	var re *xoauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &apperrors.UpstreamError{
			Op:          op,
			StatusCode:  re.Response.StatusCode,
			ErrorCode:   re.ErrorCode,
			Description: re.ErrorDescription,
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("[LibraryClient] %s: %w", op, err)
	}
	return fmt.Errorf("[LibraryClient] %s: %w: %w", op, apperrors.ErrMalformedResponse, err)
}
