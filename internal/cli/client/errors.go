package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// maxDetailLength caps how much of a non-JSON error body ends up in messages
const maxDetailLength = 512

// TransportError means no usable response came back: the network was
// unreachable, the connection broke, or the request timed out.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request (%s %s): %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request hit the client timeout
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ServerError is a non-2xx response. Detail carries the server's message.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Detail)
}

// Unauthenticated reports a response that means "no valid session"
func (e *ServerError) Unauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newServerError(method, url string, status int, body []byte) *ServerError {
	return &ServerError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		Detail:     extractDetail(status, body),
		Body:       body,
	}
}

// extractDetail pulls the human message out of {"error": ...} or {"detail": ...}
// bodies, falling back to the raw text.
func extractDetail(status int, body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
			return string(raw)
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}
	if len(text) > maxDetailLength {
		text = text[:maxDetailLength] + "..."
	}
	return text
}
