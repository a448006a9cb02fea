package server

func (s *Server) initRoutes() {
	// Gateway routes: need a session but never reach the upstream
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.GatewayMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.GatewayMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCSRFToken, ChainMiddleware(s.CSRFTokenHandler(), s.GatewayMiddleware()...))

	// Everything else, including the OAuth2 callback, goes through the browser auth gate
	s.RegisterRouteFunc(RouteUpstream, ChainMiddleware(s.upstream.ServeHTTP, s.GatewayMiddleware(s.browserAuth.HandlerFunc)...))
}
