package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Session is the per-browser key/value store. Values are held as JSON so the
// store never needs to know the shape of what callers keep in it.
type Session struct {
	ID        string
	Values    map[string]json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time

	isNew bool
	dirty bool
	renew bool
}

// New creates an empty session that has not been persisted yet.
func New(id string, now time.Time, maxAge time.Duration) *Session {
	return &Session{
		ID:        id,
		Values:    make(map[string]json.RawMessage),
		CreatedAt: now,
		ExpiresAt: now.Add(maxAge),
		isNew:     true,
	}
}

// Get decodes the value stored under key into v. It reports false when the key is absent.
func (s *Session) Get(key string, v any) (bool, error) {
	raw, ok := s.Values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("[Session Get] decoding %q: %w", key, err)
	}
	return true, nil
}

// Set replaces the value stored under key.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[Session Set] encoding %q: %w", key, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]json.RawMessage)
	}
	s.Values[key] = raw
	s.dirty = true
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; !ok {
		return
	}
	delete(s.Values, key)
	s.dirty = true
}

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// Dirty reports whether the session changed since it was loaded or last saved.
func (s *Session) Dirty() bool { return s.dirty }

// RenewID asks for the session to move to a fresh ID before the response
// headers are written. Values are kept and the old ID stops working. Call it
// whenever the session gains privileges, e.g. after a login.
func (s *Session) RenewID() {
	s.renew = true
	s.dirty = true
}

func (s *Session) clone() Session {
	return Session{
		ID:        s.ID,
		Values:    maps.Clone(s.Values),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

type contextKey struct{}

// NewContext attaches the session to ctx.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the session middleware, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
