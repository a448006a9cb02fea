package oauth2

// TokenResponse represents the response from an OAuth2 token request (RFC 6749 section 5.1).
// Returned from the token endpoint for both the authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the bearer credential forwarded to the protected API.
	// Required: a response without it is treated as malformed.
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token (expected "Bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Optional: when absent the expiry is taken from a JWT "exp" claim if there is one,
	// otherwise the token is treated as non-expiring.
	ExpiresIn *int64 `json:"expires_in,omitempty"`

	// RefreshToken is used to obtain new access tokens.
	// Optional on refresh: when absent the previous refresh token is retained.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions, space separated.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the token endpoint error body (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}
