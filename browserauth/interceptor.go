package browserauth

import (
	"net/http"

	"github.com/jrsteele09/go-browser-auth/token"
	"github.com/rs/zerolog/log"
)

// unauthorizedWriter watches the downstream status. When it is 401 the hook
// adds headers just before they are sent; the 401 itself still goes out.
type unauthorizedWriter struct {
	http.ResponseWriter
	onUnauthorized func(http.Header)
	wroteHeader    bool
}

func (w *unauthorizedWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if statusCode == http.StatusUnauthorized {
			w.onUnauthorized(w.Header())
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *unauthorizedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *unauthorizedWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if err := http.NewResponseController(w.ResponseWriter).Flush(); err != nil {
		log.Debug().Err(err).Msg("response writer cannot flush")
	}
}

func (w *unauthorizedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// serveIntercepted calls next and, if it answers 401, advertises a fresh
// authorization URL in a Link header with rel="authenticate".
func (m *Middleware) serveIntercepted(w http.ResponseWriter, r *http.Request, store *token.Store, next http.Handler) {
	iw := &unauthorizedWriter{
		ResponseWriter: w,
		onUnauthorized: func(h http.Header) {
			authURL, err := m.flow.BuildAuthorizeURL(r, store, r.URL.RequestURI())
			if err != nil {
				logFlowError(r, err, "could not build re-authentication link")
				return
			}
			h.Add("Link", "<"+authURL+`>; rel="authenticate"`)
			log.Debug().Str("path", r.URL.Path).Msg("downstream requires authentication, link added")
		},
	}
	next.ServeHTTP(iw, r)
}
