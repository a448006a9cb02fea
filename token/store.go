package token

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/sessions"
)

// Session keys owned by this package.
const (
	recordKey    = "oauth2tokens"
	flowStateKey = "oauth2flow"
)

// SessionValues is the part of a session the store needs.
type SessionValues interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Delete(key string)
}

// Store reads and writes the token record and flow state of one session.
// It holds nothing itself, every call goes to the session.
type Store struct {
	values SessionValues
}

func NewStore(values SessionValues) *Store {
	return &Store{values: values}
}

// FromRequest returns the store for the session attached to r. A missing session
// is a pipeline misconfiguration and reported as ErrSessionMissing.
func FromRequest(r *http.Request) (*Store, error) {
	session, ok := sessions.FromContext(r.Context())
	if !ok {
		return nil, apperrors.ErrSessionMissing
	}
	return NewStore(session), nil
}

// Load returns the stored token record, or nil when there is none.
func (s *Store) Load() (*Record, error) {
	var rec Record
	found, err := s.values.Get(recordKey, &rec)
	if err != nil {
		return nil, fmt.Errorf("[token Store Load] %w", err)
	}
	if !found || rec.AccessToken == "" {
		return nil, nil
	}
	return &rec, nil
}

// Save replaces the stored token record.
func (s *Store) Save(rec Record) error {
	if rec.AccessToken == "" {
		return errors.New("[token Store Save] access token is required")
	}
	if err := s.values.Set(recordKey, rec); err != nil {
		return fmt.Errorf("[token Store Save] %w", err)
	}
	return nil
}

// Clear removes the token record and any in-flight flow.
func (s *Store) Clear() {
	s.values.Delete(recordKey)
	s.values.Delete(flowStateKey)
}

// LoadFlowState returns the in-flight flow, or nil when there is none.
func (s *Store) LoadFlowState() (*FlowState, error) {
	var fs FlowState
	found, err := s.values.Get(flowStateKey, &fs)
	if err != nil {
		return nil, fmt.Errorf("[token Store LoadFlowState] %w", err)
	}
	if !found {
		return nil, nil
	}
	return &fs, nil
}

// SaveFlowState replaces any previous in-flight flow.
func (s *Store) SaveFlowState(fs FlowState) error {
	if fs.State == "" {
		return errors.New("[token Store SaveFlowState] state is required")
	}
	if err := s.values.Set(flowStateKey, fs); err != nil {
		return fmt.Errorf("[token Store SaveFlowState] %w", err)
	}
	return nil
}

func (s *Store) ClearFlowState() {
	s.values.Delete(flowStateKey)
}
