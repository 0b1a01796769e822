package client

import (
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	// CSRFCookieName is the cookie the server uses to hand out the anti-forgery token
	CSRFCookieName = "csrftoken"

	// CSRFHeaderName is the header the server expects the token echoed in
	CSRFHeaderName = "X-CSRFTOKEN"

	// RequestIDHeader tags each request for log correlation
	RequestIDHeader = "X-Request-ID"
)

// IsSafeMethod reports whether method is read-only and therefore CSRF exempt
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// csrfTransport echoes the CSRF cookie as a header on unsafe requests.
// The cookie is looked up at round-trip time, so a token rotated by an
// earlier response in the same flow is picked up by the next request.
type csrfTransport struct {
	base    http.RoundTripper
	jar     http.CookieJar
	origin  string
	referer string
	logger  zerolog.Logger
}

func (t *csrfTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, ulid.Make().String())
	}
	if t.origin != "" && out.Header.Get("Origin") == "" {
		out.Header.Set("Origin", t.origin)
	}

	if !IsSafeMethod(out.Method) {
		if token := t.csrfToken(out); token != "" {
			out.Header.Set(CSRFHeaderName, token)
		}
		// Referer checking applies to secure requests
		if out.URL.Scheme == "https" && t.referer != "" && out.Header.Get("Referer") == "" {
			out.Header.Set("Referer", t.referer)
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)

	event := t.logger.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Str("request_id", out.Header.Get(RequestIDHeader)).
		Bool("csrf", out.Header.Get(CSRFHeaderName) != "").
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("request completed")

	return resp, nil
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the base transport
func (t *csrfTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

func (t *csrfTransport) csrfToken(req *http.Request) string {
	if t.jar == nil {
		return ""
	}
	for _, c := range t.jar.Cookies(req.URL) {
		if c.Name == CSRFCookieName {
			return c.Value
		}
	}
	return ""
}
