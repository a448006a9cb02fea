package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() string
	GetSessionMaxAge() time.Duration
	GetStripCSRFField() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret returns the master secret for session cookie signing.
// Empty means a random secret is generated at startup, so sessions do not survive restarts.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Security) GetSessionMaxAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 24*time.Hour)
}

// GetStripCSRFField controls whether the csrf-token field is removed from form bodies before proxying.
func (Security) GetStripCSRFField() bool {
	return GetEnvBool("CSRF_STRIP_FIELD", true)
}
