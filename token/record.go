package token

import (
	"time"

	"github.com/jrsteele09/go-browser-auth/oauthclient"
)

// Record is the OAuth2 token set kept in the browser's session.
// It is always replaced wholesale, never patched.
type Record struct {
	AccessToken  string     `json:"accessToken"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"` // nil: no known expiry
	RefreshToken string     `json:"refreshToken,omitempty"`
}

// IsExpired reports whether the access token can no longer be used at now.
func (r Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// NewRecord builds the record for a token set received at now. previousRefreshToken
// is kept when the response did not rotate the refresh token.
func NewRecord(set *oauthclient.TokenSet, now time.Time, previousRefreshToken string) Record {
	rec := Record{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
	}
	if rec.RefreshToken == "" {
		rec.RefreshToken = previousRefreshToken
	}
	switch {
	case set.ExpiresIn > 0:
		expiresAt := now.Add(lifetime(set.ExpiresIn))
		rec.ExpiresAt = &expiresAt
	default:
		if expiresAt, ok := ExpiryFromJWT(set.AccessToken); ok {
			rec.ExpiresAt = &expiresAt
		}
	}
	return rec
}

// maxLifetime caps expires_in so the conversion to time.Duration cannot overflow.
const maxLifetime = 100 * 365 * 24 * time.Hour

func lifetime(expiresIn int64) time.Duration {
	if expiresIn > int64(maxLifetime/time.Second) {
		return maxLifetime
	}
	return time.Duration(expiresIn) * time.Second
}

// FlowState tracks one in-flight authorization code flow between the
// redirect to the authorization server and the callback.
type FlowState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"codeVerifier"`
	RedirectURI  string    `json:"redirectUri"`
	ContinueURL  string    `json:"continueUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}
