package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hireloop-dev/hireloop/internal/cli/client"
)

// ErrInvalidIdentity means the session endpoint answered 2xx with a body that is not JSON
var ErrInvalidIdentity = errors.New("invalid session payload")

// ValidationError is raised locally, before any request is issued
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "invalid input"
	case 1:
		return fmt.Sprintf("%s is required", e.Fields[0])
	default:
		return fmt.Sprintf("%s and %s are required",
			strings.Join(e.Fields[:len(e.Fields)-1], ", "), e.Fields[len(e.Fields)-1])
	}
}

// ErrorKind classifies auth failures
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindTransport
	KindServer
	KindProtocol
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// KindOf classifies err, looking through wrapping
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var validationErr *ValidationError
	var transportErr *client.TransportError
	var serverErr *client.ServerError

	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &serverErr):
		return KindServer
	case errors.Is(err, ErrInvalidIdentity):
		return KindProtocol
	default:
		return KindUnknown
	}
}

// Outcome is what the silent operations (Logout, GetUser) produce instead of
// an error. UI callers may ignore it; tests and logs can inspect it.
type Outcome struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func succeeded(op string) Outcome {
	return Outcome{Op: op, Kind: KindNone}
}

func failed(op string, err error) Outcome {
	return Outcome{Op: op, Kind: KindOf(err), Err: err}
}

// OK reports whether the operation succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Unauthenticated reports a server answer meaning "no valid session"
func (o Outcome) Unauthenticated() bool {
	var serverErr *client.ServerError
	return errors.As(o.Err, &serverErr) && serverErr.Unauthenticated()
}
