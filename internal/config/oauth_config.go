package config

import (
	"strings"
	"time"
)

const (
	ClientKindForm    = "form"
	ClientKindLibrary = "library"
)

type OAuthConfig interface {
	GetIssuer() string
	GetAuthorizeEndpoint() string
	GetTokenEndpoint() string
	GetClientID() string
	GetClientSecret() string
	GetScope() []string
	GetClientKind() string
	GetUsePKCE() bool
	GetHTTPTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetIssuer returns the OIDC issuer used to discover endpoints. Empty disables discovery.
func (OAuth) GetIssuer() string {
	return GetEnv("OAUTH2_ISSUER", "")
}

func (OAuth) GetAuthorizeEndpoint() string {
	return GetEnv("OAUTH2_AUTHORIZE_ENDPOINT", "")
}

func (OAuth) GetTokenEndpoint() string {
	return GetEnv("OAUTH2_TOKEN_ENDPOINT", "")
}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH2_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH2_CLIENT_SECRET", "")
}

// GetScope returns the requested scopes in configured order.
func (OAuth) GetScope() []string {
	return strings.Fields(GetEnv("OAUTH2_SCOPE", "openid"))
}

// GetClientKind selects the token endpoint client: "form" or "library".
func (OAuth) GetClientKind() string {
	kind := strings.ToLower(GetEnv("OAUTH2_CLIENT", ClientKindForm))
	if kind != ClientKindLibrary {
		return ClientKindForm
	}
	return kind
}

func (OAuth) GetUsePKCE() bool {
	return GetEnvBool("OAUTH2_PKCE", true)
}

func (OAuth) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("OAUTH2_HTTP_TIMEOUT", 30*time.Second)
}
