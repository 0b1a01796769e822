package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBaseURL is the API root of a local development server
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout bounds every request. Nothing is retried.
	DefaultTimeout = 5000 * time.Millisecond

	// maxBodySize caps how much of a response body is read
	maxBodySize = 10 << 20
)

// Client is the one request-issuing client shared by every auth operation
// and by the resource services built on top of it. It carries the session
// cookies and handles the CSRF header; callers never touch either.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	logger     zerolog.Logger
}

// Option customizes a Client at construction
type Option func(*options)

type options struct {
	origin    string
	transport http.RoundTripper
	logger    zerolog.Logger
	timeout   time.Duration
}

// WithOrigin sends an Origin header, as a browser would for a cross-origin app
func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = strings.TrimRight(origin, "/")
	}
}

// WithTransport replaces the underlying round tripper (TLS settings, tests)
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout overrides DefaultTimeout. Only tests have a reason to.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New creates a client pinned to baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing host", baseURL)
	}

	o := options{
		transport: http.DefaultTransport,
		logger:    zerolog.Nop(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	referer := ""
	if o.origin != "" {
		referer = o.origin + "/"
	} else if u.Scheme == "https" {
		referer = u.Scheme + "://" + u.Host + "/"
	}

	return &Client{
		baseURL: u,
		jar:     jar,
		logger:  o.logger,
		httpClient: &http.Client{
			Timeout: o.timeout,
			Jar:     jar,
			Transport: &csrfTransport{
				base:    o.transport,
				jar:     jar,
				origin:  o.origin,
				referer: referer,
				logger:  o.logger,
			},
		},
	}, nil
}

// BaseURL returns the API root this client is pinned to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL resolves an API path against the base endpoint
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Response is a fully read 2xx response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get issues a safe request
func (c *Client) Get(path string) (*Response, error) {
	return c.Do(http.MethodGet, path, "", nil)
}

// Post issues a POST with no body
func (c *Client) Post(path string) (*Response, error) {
	return c.Do(http.MethodPost, path, "", nil)
}

// PostJSON marshals body and POSTs it
func (c *Client) PostJSON(path string, body any) (*Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.Do(http.MethodPost, path, "application/json", bytes.NewReader(jsonData))
}

// PostForm POSTs an already encoded form (multipart or urlencoded)
func (c *Client) PostForm(path, contentType string, body io.Reader) (*Response, error) {
	return c.Do(http.MethodPost, path, contentType, body)
}

// Do issues one request. Failures come back as *TransportError or *ServerError.
func (c *Client) Do(method, path, contentType string, body io.Reader) (*Response, error) {
	target := c.URL(path)

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServerError(method, target, resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// cookieURL is the scope session cookies are stored and restored under
func (c *Client) cookieURL() *url.URL {
	return &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host, Path: "/"}
}

// Cookies returns the cookies the jar would send to the API
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// SetCookies seeds the jar, e.g. with a session restored from disk
func (c *Client) SetCookies(cookies []*http.Cookie) {
	restored := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		cp := *ck
		if cp.Path == "" {
			cp.Path = "/"
		}
		restored = append(restored, &cp)
	}
	c.jar.SetCookies(c.cookieURL(), restored)
}

// CSRFToken returns the current CSRF cookie value, if any
func (c *Client) CSRFToken() string {
	for _, ck := range c.Cookies() {
		if ck.Name == CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}

// CloseIdleConnections releases pooled connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
