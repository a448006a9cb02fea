package server

import "github.com/jrsteele09/go-browser-auth/browserauth"

// Route path constants
// The gateway owns everything under /_browser-auth; all other paths go upstream.
const (
	RouteCallback  = browserauth.CallbackPath
	RouteLogin     = browserauth.CallbackPath + "/login"
	RouteLogout    = browserauth.CallbackPath + "/logout"
	RouteCSRFToken = browserauth.CallbackPath + "/csrf"
	RouteUpstream  = "/"
)
