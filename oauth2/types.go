package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code that the gateway exchanges server-side.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 sends code_challenge = BASE64URL(SHA256(code_verifier)).
	// It is the only method the gateway emits.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, redirect_uri, client_id, code_verifier (if PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id
	RefreshTokenGrant GrantType = "refresh_token"
)

// Parameter names used on the authorize, callback and token endpoints.
const (
	ParamResponseType        = "response_type"
	ParamClientID            = "client_id"
	ParamRedirectURI         = "redirect_uri"
	ParamScope               = "scope"
	ParamState               = "state"
	ParamCode                = "code"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ParamCodeVerifier        = "code_verifier"
	ParamGrantType           = "grant_type"
	ParamRefreshToken        = "refresh_token"
	ParamError               = "error"
	ParamErrorDescription    = "error_description"
)
