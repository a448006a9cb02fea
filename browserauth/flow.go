package browserauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/internal/utils"
	"github.com/jrsteele09/go-browser-auth/oauth2"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/jrsteele09/go-browser-auth/token"
	xoauth2 "golang.org/x/oauth2"
)

// CallbackPath is where the authorization server sends the browser back to.
const CallbackPath = "/_browser-auth"

// randomBytes gives state and code verifier 256 bits of entropy.
const randomBytes = 32

// FlowDriver runs the authorization code flow: it starts flows by building
// authorize URLs and finishes them by exchanging the returned code.
type FlowDriver struct {
	client    oauthclient.Client
	publicURI *url.URL
	pkce      bool
	random    io.Reader
	now       func() time.Time
}

// FlowConfig configures a FlowDriver. Random and Now default to crypto/rand and time.Now.
type FlowConfig struct {
	Client    oauthclient.Client
	PublicURI string // empty: derive the callback URL from the request
	UsePKCE   bool
	Random    io.Reader
	Now       func() time.Time
}

func NewFlowDriver(cfg FlowConfig) (*FlowDriver, error) {
	if cfg.Client == nil {
		return nil, errors.New("[browserauth NewFlowDriver] an oauth2 client is required")
	}
	d := &FlowDriver{
		client: cfg.Client,
		pkce:   cfg.UsePKCE,
		random: cfg.Random,
		now:    cfg.Now,
	}
	if cfg.PublicURI != "" {
		u, err := url.Parse(cfg.PublicURI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("[browserauth NewFlowDriver] public URI %q must be absolute", cfg.PublicURI)
		}
		d.publicURI = u
	}
	if d.random == nil {
		d.random = rand.Reader
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// RedirectURI is the callback URL registered with the authorization server.
func (d *FlowDriver) RedirectURI(r *http.Request) string {
	base := d.publicURI
	if base == nil {
		base = &url.URL{Scheme: getScheme(r), Host: r.Host}
	}
	return base.ResolveReference(&url.URL{Path: CallbackPath}).String()
}

// BuildAuthorizeURL starts a new flow that will return the browser to
// continueTarget, replacing any flow already in progress for the session.
func (d *FlowDriver) BuildAuthorizeURL(r *http.Request, store *token.Store, continueTarget string) (string, error) {
	if err := ValidateContinueTarget(continueTarget); err != nil {
		return "", err
	}

	state, err := utils.RandomString(d.random, randomBytes)
	if err != nil {
		return "", fmt.Errorf("[FlowDriver BuildAuthorizeURL] failed to generate state: %w", err)
	}
	verifier, err := utils.RandomString(d.random, randomBytes)
	if err != nil {
		return "", fmt.Errorf("[FlowDriver BuildAuthorizeURL] failed to generate code verifier: %w", err)
	}

	fs := token.FlowState{
		State:        state,
		CodeVerifier: verifier,
		RedirectURI:  d.RedirectURI(r),
		ContinueURL:  continueTarget,
		CreatedAt:    d.now(),
	}
	if err := store.SaveFlowState(fs); err != nil {
		return "", err
	}

	req := oauthclient.AuthorizeRequest{RedirectURI: fs.RedirectURI, State: fs.State}
	if d.pkce {
		req.CodeChallenge = xoauth2.S256ChallengeFromVerifier(verifier)
	}
	return d.client.AuthorizeURL(req)
}

// HandleCallback completes the flow from the callback parameters and returns
// where the browser should continue to.
func (d *FlowDriver) HandleCallback(ctx context.Context, store *token.Store, params url.Values) (string, error) {
	if errCode := params.Get(oauth2.ParamError); errCode != "" {
		if desc := params.Get(oauth2.ParamErrorDescription); desc != "" {
			return "", fmt.Errorf("%w: %s - %s", apperrors.ErrAuthorizationDenied, errCode, desc)
		}
		return "", fmt.Errorf("%w: %s", apperrors.ErrAuthorizationDenied, errCode)
	}

	code := params.Get(oauth2.ParamCode)
	if code == "" {
		return "", apperrors.ErrMissingCode
	}

	fs, err := store.LoadFlowState()
	if err != nil {
		return "", err
	}
	if fs == nil {
		return "", apperrors.ErrNoFlowInProgress
	}

	state := params.Get(oauth2.ParamState)
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(fs.State)) != 1 {
		return "", apperrors.ErrStateMismatch
	}

	// Single use: a replayed callback must not reach the token endpoint again
	store.ClearFlowState()

	verifier := ""
	if d.pkce {
		verifier = fs.CodeVerifier
	}
	now := d.now()
	set, err := d.client.ExchangeCode(ctx, code, fs.RedirectURI, verifier)
	if err != nil {
		return "", err
	}
	if err := store.Save(token.NewRecord(set, now, "")); err != nil {
		return "", err
	}

	target := fs.ContinueURL
	if target == "" {
		target = "/"
	}
	// Checked again in case the stored flow state was tampered with
	if err := ValidateContinueTarget(target); err != nil {
		return "", err
	}
	return target, nil
}

// ValidateContinueTarget accepts only same-origin absolute paths. "//host" and
// "/\host" are rejected because browsers treat them as protocol-relative URLs.
func ValidateContinueTarget(target string) error {
	if !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, `/\`) {
		return fmt.Errorf("%w: continue target %q is not a local path", apperrors.ErrSandboxViolation, target)
	}
	return nil
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
