package sessions

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Repo persists sessions between requests.
type Repo interface {
	Upsert(session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
	DeleteExpired(now time.Time) error
}
