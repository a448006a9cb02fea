package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/jrsteele09/go-browser-auth/sessions"
	"github.com/rs/zerolog/log"
)

// NewUpstreamProxy forwards requests to the bearer-protected API. The gateway's
// own session cookie is not sent upstream.
func NewUpstreamProxy(upstreamURL string) (http.Handler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("[server NewUpstreamProxy] invalid upstream URL %q", upstreamURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			for _, c := range pr.In.Cookies() {
				if c.Name != sessions.CookieName {
					pr.Out.AddCookie(c)
				}
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}, nil
}
