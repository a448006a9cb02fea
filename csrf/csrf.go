// Package csrf guards state-changing requests that ride on a session-derived
// bearer token. The expected token lives in the session; the browser echoes it
// in the X-CSRF-Token header or a csrf-token form field.
package csrf

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/internal/utils"
	"github.com/jrsteele09/go-browser-auth/sessions"
)

const (
	FieldName  = "csrf-token"
	HeaderName = "X-CSRF-Token"

	sessionKey   = "csrf-token"
	tokenBytes   = 32
	maxFormBytes = 10 << 20
)

// Validator checks that a request carries proof it originated from our own pages.
type Validator interface {
	Validate(r *http.Request) error
}

// SessionValidator compares the request's token with the one stored in the session.
type SessionValidator struct {
	random io.Reader
}

var _ Validator = (*SessionValidator)(nil)

// NewSessionValidator creates a validator drawing new tokens from random, or crypto/rand when nil.
func NewSessionValidator(random io.Reader) *SessionValidator {
	if random == nil {
		random = rand.Reader
	}
	return &SessionValidator{random: random}
}

// Token returns the session's token, creating it on first use.
func (v *SessionValidator) Token(r *http.Request) (string, error) {
	session, ok := sessions.FromContext(r.Context())
	if !ok {
		return "", apperrors.ErrSessionMissing
	}
	var token string
	if found, err := session.Get(sessionKey, &token); err == nil && found && token != "" {
		return token, nil
	}
	token, err := utils.RandomString(v.random, tokenBytes)
	if err != nil {
		return "", fmt.Errorf("[csrf Token] %w", err)
	}
	if err := session.Set(sessionKey, token); err != nil {
		return "", fmt.Errorf("[csrf Token] %w", err)
	}
	return token, nil
}

// Forget drops the session's token so the next Token call issues a new one.
func Forget(r *http.Request) {
	if session, ok := sessions.FromContext(r.Context()); ok {
		session.Delete(sessionKey)
	}
}

func (v *SessionValidator) Validate(r *http.Request) error {
	session, ok := sessions.FromContext(r.Context())
	if !ok {
		return apperrors.ErrSessionMissing
	}
	var expected string
	if found, err := session.Get(sessionKey, &expected); err != nil || !found || expected == "" {
		return apperrors.ErrCSRFInvalid
	}

	provided := r.Header.Get(HeaderName)
	if provided == "" {
		form, isForm, err := readForm(r)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrCSRFInvalid, "[csrf Validate] %v", err)
		}
		if isForm {
			provided = form.Get(FieldName)
		}
	}

	if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return apperrors.ErrCSRFInvalid
	}
	return nil
}

// StripField removes the csrf-token field from a form-encoded body so it is not
// forwarded upstream. Other bodies are left alone.
func StripField(r *http.Request) error {
	form, isForm, err := readForm(r)
	if err != nil || !isForm || !form.Has(FieldName) {
		return err
	}
	form.Del(FieldName)
	setBody(r, []byte(form.Encode()))
	return nil
}

// readForm parses an application/x-www-form-urlencoded body and puts the bytes
// back so the request can still be forwarded.
func readForm(r *http.Request) (url.Values, bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false, nil
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return nil, false, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("reading form body: %w", err)
	}
	if len(body) > maxFormBytes {
		return nil, true, fmt.Errorf("form body exceeds %d bytes", maxFormBytes)
	}
	setBody(r, body)
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, true, fmt.Errorf("parsing form body: %w", err)
	}
	return form, true, nil
}

func setBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
