package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-browser-auth/internal/errors"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
)

// Refresher performs the refresh_token grant.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauthclient.TokenSet, error)
}

// Evaluator decides whether the session's token can be used as is and refreshes it when it cannot.
type Evaluator struct {
	refresher Refresher
	now       func() time.Time
}

type EvaluatorOption func(*Evaluator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(refresher Refresher, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{refresher: refresher, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UsableToken returns a token that may be sent as a bearer credential.
// (nil, nil) means the session holds no token. Refresh failures are returned
// wrapped in ErrTokenRefreshFailed and leave the session untouched.
func (e *Evaluator) UsableToken(ctx context.Context, store *Store) (*Record, error) {
	rec, err := store.Load()
	if err != nil || rec == nil {
		return nil, err
	}

	now := e.now()
	if !rec.IsExpired(now) {
		return rec, nil
	}

	if rec.RefreshToken == "" {
		return nil, refreshFailed(errors.New("token expired and no refresh token is stored"))
	}

	set, err := e.refresher.RefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		return nil, refreshFailed(err)
	}

	refreshed := NewRecord(set, now, rec.RefreshToken)
	if err := store.Save(refreshed); err != nil {
		return nil, refreshFailed(err)
	}
	return &refreshed, nil
}

// refreshFailed marks err as a refresh failure while keeping the cause inspectable.
func refreshFailed(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrTokenRefreshFailed, err)
}
