package sessions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the cookie carrying the signed session ID.
const CookieName = "browser_session_id"

const cookieKeyPurpose = "browser-session-cookie"

// Manager loads the browser's session before the rest of the chain runs and
// persists it afterwards. It issues a cookie only once something was stored.
type Manager struct {
	repo       Repo
	signingKey []byte
	maxAge     time.Duration
	now        func() time.Time
}

// NewManager derives the cookie signing key from secret.
func NewManager(repo Repo, secret []byte, maxAge time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("[sessions NewManager] secret is required")
	}
	key, err := DeriveKey(secret, cookieKeyPurpose)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewManager] %w", err)
	}
	return &Manager{
		repo:       repo,
		signingKey: key,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

// DeriveKey expands a master secret into a 32 byte key bound to purpose.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", purpose, err)
	}
	return key, nil
}

// Middleware attaches the session to the request context.
func (m *Manager) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := m.load(r)
		sw := &sessionWriter{ResponseWriter: w, manager: m, session: session, request: r}

		next(sw, r.WithContext(NewContext(r.Context(), session)))

		// Handlers that never wrote still need their changes persisted; net/http
		// writes the implicit header without going through sw
		if !sw.wroteHeader {
			sw.beforeHeaders()
		}
		sw.commit()
	}
}

func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return m.newSession()
	}
	sessionID, ok := m.verify(cookie.Value)
	if !ok {
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("session cookie signature mismatch")
		return m.newSession()
	}
	stored, err := m.repo.Get(sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Err(err).Msg("failed to load session")
		}
		return m.newSession()
	}
	if !stored.ExpiresAt.After(m.now()) {
		_ = m.repo.Delete(sessionID)
		return m.newSession()
	}
	return &stored
}

func (m *Manager) newSession() *Session {
	return New(m.newID(), m.now(), m.maxAge)
}

func (m *Manager) newID() string {
	return uuid.NewString()
}

func (m *Manager) sign(sessionID string) string {
	mac := hmac.New(sha256.New, m.signingKey)
	mac.Write([]byte(sessionID))
	return sessionID + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	sessionID, _, found := strings.Cut(value, ".")
	if !found || sessionID == "" {
		return "", false
	}
	return sessionID, hmac.Equal([]byte(value), []byte(m.sign(sessionID)))
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.sign(session.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(m.now()).Seconds()),
	})
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

// sessionWriter persists the session and issues the cookie just before the
// response headers go out, since later changes could not reach the browser.
type sessionWriter struct {
	http.ResponseWriter
	manager     *Manager
	session     *Session
	request     *http.Request
	wroteHeader bool
	replacedID  string // set when the session moved to a new ID this request
}

func (w *sessionWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.beforeHeaders()
		w.commit()
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush forwards through the wrapped writers so streamed responses reach the client.
func (w *sessionWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if err := http.NewResponseController(w.ResponseWriter).Flush(); err != nil {
		log.Debug().Err(err).Str("path", w.request.URL.Path).Msg("response writer cannot flush")
	}
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// beforeHeaders runs once, while cookies can still be set.
func (w *sessionWriter) beforeHeaders() {
	w.wroteHeader = true
	w.rotate()
	if w.session.isNew && w.session.dirty {
		w.manager.setCookie(w.ResponseWriter, w.request, w.session)
		w.session.isNew = false
	}
}

// rotate moves a stored session to a fresh ID when RenewID was called.
func (w *sessionWriter) rotate() {
	if !w.session.renew {
		return
	}
	w.session.renew = false
	if w.session.isNew {
		// Never handed to the browser, its ID is already fresh
		return
	}
	w.replacedID = w.session.ID
	w.session.ID = w.manager.newID()
	w.session.isNew = true
}

func (w *sessionWriter) commit() {
	if !w.session.dirty {
		return
	}
	if w.session.isNew {
		// Headers are gone, the browser could never present this session again
		log.Warn().Str("path", w.request.URL.Path).Msg("session changed after response headers were written")
		return
	}
	if w.session.renew {
		log.Warn().Str("path", w.request.URL.Path).Msg("session ID renewal requested after response headers were written")
		w.session.renew = false
	}
	if err := w.manager.repo.Upsert(*w.session); err != nil {
		log.Err(err).Str("session_id", w.session.ID).Msg("failed to save session")
		return
	}
	w.session.dirty = false

	if w.replacedID != "" {
		if err := w.manager.repo.Delete(w.replacedID); err != nil {
			log.Err(err).Msg("failed to delete replaced session")
		}
		w.replacedID = ""
	}
}
