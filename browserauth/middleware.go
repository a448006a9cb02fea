// Package browserauth lets browsers holding only a session cookie call an API
// that expects OAuth2 bearer tokens. The middleware keeps the user's token set
// in the session, refreshes it when it expires, and completes the
// authorization code flow on /_browser-auth.
package browserauth

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-browser-auth/csrf"
	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/jrsteele09/go-browser-auth/sessions"
	"github.com/jrsteele09/go-browser-auth/token"
	"github.com/rs/zerolog/log"
)

// Config configures the middleware. Client and CSRF are required.
type Config struct {
	Client    oauthclient.Client
	PublicURI string
	UsePKCE   bool
	// StripCSRFField removes the csrf-token field from form bodies before they are forwarded.
	StripCSRFField bool
	CSRF           csrf.Validator
	Random         io.Reader
	Now            func() time.Time
}

// Middleware is the per-request gate. Each request ends up in one of four states:
// passthrough (caller sent its own Authorization header), callback, unauthenticated
// or authenticated (bearer token attached).
type Middleware struct {
	flow      *FlowDriver
	evaluator *token.Evaluator
	csrf      csrf.Validator
	stripCSRF bool
}

func New(cfg Config) (*Middleware, error) {
	if cfg.CSRF == nil {
		return nil, errors.New("[browserauth New] a csrf validator is required")
	}
	flow, err := NewFlowDriver(FlowConfig{
		Client:    cfg.Client,
		PublicURI: cfg.PublicURI,
		UsePKCE:   cfg.UsePKCE,
		Random:    cfg.Random,
		Now:       cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Middleware{
		flow:      flow,
		evaluator: token.NewEvaluator(cfg.Client, token.WithClock(flow.now)),
		csrf:      cfg.CSRF,
		stripCSRF: cfg.StripCSRFField,
	}, nil
}

// Flow exposes the flow driver, e.g. for handlers that want to start a login explicitly.
func (m *Middleware) Flow() *FlowDriver {
	return m.flow
}

// HandlerFunc adapts the middleware to the func(http.HandlerFunc) http.HandlerFunc chain form.
func (m *Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return m.Handler(next).ServeHTTP
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			// The caller brought its own credentials
			next.ServeHTTP(w, r)
			return
		}

		store, err := token.FromRequest(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if r.URL.Path == CallbackPath {
			m.handleCallback(w, r, store)
			return
		}

		rec, err := m.evaluator.UsableToken(r.Context(), store)
		if err != nil {
			// Carry on without a token; downstream rejects and the interceptor offers a new login
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("no usable token for session")
			rec = nil
		}
		if rec == nil {
			m.serveIntercepted(w, r, store, next)
			return
		}

		r = r.Clone(r.Context())
		if !isSafeMethod(r.Method) {
			if err := m.csrf.Validate(r); err != nil {
				writeError(w, r, err)
				return
			}
			if m.stripCSRF {
				if err := csrf.StripField(r); err != nil {
					writeError(w, r, apperrors.Wrapf(err, "[browserauth] stripping csrf field"))
					return
				}
			}
		}
		r.Header.Set("Authorization", "Bearer "+rec.AccessToken)
		m.serveIntercepted(w, r, store, next)
	})
}

func (m *Middleware) handleCallback(w http.ResponseWriter, r *http.Request, store *token.Store) {
	// ParseForm covers query parameters and the form_post response mode
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid callback parameters", http.StatusBadRequest)
		return
	}
	target, err := m.flow.HandleCallback(r.Context(), store, r.Form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The session now carries a token; anything known about it before login must not unlock it
	if session, ok := sessions.FromContext(r.Context()); ok {
		session.RenewID()
	}
	csrf.Forget(r)
	log.Info().Str("continue", target).Msg("browser authenticated")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "SEARCH":
		return true
	}
	return false
}

// writeError answers with the status the error maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	logFlowError(r, err, "browser auth request failed")
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

// logFlowError logs tampering signs apart from ordinary failures.
func logFlowError(r *http.Request, err error, msg string) {
	switch {
	case apperrors.IsSecurityViolation(err):
		log.Warn().Err(err).
			Bool("security_violation", true).
			Str("remote_addr", r.RemoteAddr).
			Str("path", r.URL.Path).
			Msg(msg)
	case apperrors.HTTPStatus(err) >= http.StatusInternalServerError:
		log.Err(err).Str("path", r.URL.Path).Msg(msg)
	default:
		log.Info().Err(err).Str("path", r.URL.Path).Msg(msg)
	}
}
