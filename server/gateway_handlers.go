package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/token"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// LoginHandler starts a login explicitly (GET /_browser-auth/login?continue=/path)
// instead of waiting for the upstream to answer 401.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := token.FromRequest(r)
		if err != nil {
			writeGatewayError(w, err)
			return
		}

		continueTarget := r.URL.Query().Get("continue")
		if continueTarget == "" {
			continueTarget = "/"
		}

		authURL, err := s.browserAuth.Flow().BuildAuthorizeURL(r, store, continueTarget)
		if err != nil {
			writeGatewayError(w, err)
			return
		}
		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

// LogoutHandler forgets the session's tokens. It is a state-changing call, so it is CSRF checked.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.csrf.Validate(r); err != nil {
			writeGatewayError(w, err)
			return
		}
		store, err := token.FromRequest(r)
		if err != nil {
			writeGatewayError(w, err)
			return
		}
		store.Clear()
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// CSRFTokenHandler hands scripts the token they must echo on unsafe requests.
func (s *Server) CSRFTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		csrfToken, err := s.csrf.Token(r)
		if err != nil {
			writeGatewayError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": csrfToken})
	}
}

func writeGatewayError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if apperrors.IsSecurityViolation(err) {
		log.Warn().Err(err).Bool("security_violation", true).Msg("gateway request rejected")
	} else if status >= http.StatusInternalServerError {
		log.Err(err).Msg("gateway request failed")
	}
	if status >= http.StatusInternalServerError {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
