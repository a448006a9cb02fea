package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-browser-auth/browserauth"
	"github.com/jrsteele09/go-browser-auth/csrf"
	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/jrsteele09/go-browser-auth/oauthclient"
	"github.com/jrsteele09/go-browser-auth/sessions"
)

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	sessions    *sessions.Manager
	csrf        *csrf.SessionValidator
	browserAuth *browserauth.Middleware
	upstream    http.Handler
}

// New wires the gateway. upstream receives every request that is not one of
// the gateway's own routes, with the bearer token already attached.
func New(c config.Config, client oauthclient.Client, sessionRepo sessions.Repo, sessionSecret []byte, upstream http.Handler) (*Server, error) {
	if upstream == nil {
		return nil, errors.New("[Server New] an upstream handler is required")
	}

	sessionManager, err := sessions.NewManager(sessionRepo, sessionSecret, c.GetSessionMaxAge())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session manager: %w", err)
	}

	csrfValidator := csrf.NewSessionValidator(nil)
	browserAuth, err := browserauth.New(browserauth.Config{
		Client:         client,
		PublicURI:      c.GetPublicURI(),
		UsePKCE:        c.GetUsePKCE(),
		StripCSRFField: c.GetStripCSRFField(),
		CSRF:           csrfValidator,
	})
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create browser auth middleware: %w", err)
	}

	s := &Server{
		env:         c.GetEnv(),
		mux:         http.NewServeMux(),
		config:      c,
		sessions:    sessionManager,
		csrf:        csrfValidator,
		browserAuth: browserAuth,
		upstream:    upstream,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// ANSI colours for the route listing; unknown methods are grey.
const (
	colourGray  = "\033[90m"
	colourReset = "\033[0m"
)

var methodColours = map[string]string{
	http.MethodGet:     "\033[32m",
	http.MethodPost:    "\033[34m",
	http.MethodPut:     "\033[36m",
	http.MethodDelete:  "\033[33m",
	http.MethodPatch:   "\033[35m",
	http.MethodOptions: "\033[31m",
}

func logRoute(method, path string) {
	colour, ok := methodColours[method]
	if !ok {
		colour = colourGray
	}
	log.Printf("[%-19s] %s\n", colour+fmt.Sprintf(" %-7s", method)+colourReset, path)
}
