// Package auth orchestrates the client side of the cookie session: login,
// logout, registration and session refresh. It is the only writer of the
// session store.
//
// Login and Register return errors so the caller can react. Logout and
// GetUser never do; they report through an Outcome and the store instead.
package auth

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hireloop-dev/hireloop/internal/cli/client"
	"github.com/hireloop-dev/hireloop/internal/cli/notify"
	"github.com/hireloop-dev/hireloop/internal/cli/router"
	"github.com/hireloop-dev/hireloop/internal/cli/session"
)

// API paths, relative to the client base endpoint
const (
	EndpointLogin    = "/login/"
	EndpointLogout   = "/logout/"
	EndpointRegister = "/create-profile/"
	EndpointSession  = "/session/"
)

// User feedback messages
const (
	MsgLoginSuccess    = "Login successful"
	MsgLogoutSuccess   = "Logout successful"
	MsgRegisterSuccess = "Register successful"
)

// Service runs the auth flows against one API
type Service struct {
	client   *client.Client
	store    *session.Store
	notifier notify.Notifier
	nav      router.Navigator
	logger   zerolog.Logger
	flights  *singleflight.Group
}

// Option configures a Service
type Option func(*Service)

// WithNotifier sets where success messages go
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithNavigator sets the navigator used after logout
func WithNavigator(nav router.Navigator) Option {
	return func(s *Service) {
		s.nav = nav
	}
}

// WithLogger sets the logger for swallowed and propagated failures
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCoalescing collapses overlapping identical calls into one flight:
// concurrent GetUser calls share a request, and concurrent Login calls with
// the same credentials share a flow. Off by default.
func WithCoalescing() Option {
	return func(s *Service) {
		s.flights = &singleflight.Group{}
	}
}

// NewService wires a Service to a client and the store it maintains
func NewService(c *client.Client, store *session.Store, opts ...Option) *Service {
	s := &Service{
		client:   c,
		store:    store,
		notifier: notify.Nop{},
		nav:      router.New(router.Routes()),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the read-only view of the store
func (s *Service) Session() session.Reader {
	return s.store
}

// Login creates a server session and refreshes the cached identity.
//
// When the credential POST succeeds but the refresh does not, the store is
// left empty and Login returns (nil, nil). Callers see a logged-out client
// even though the server accepted the credentials.
func (s *Service) Login(creds Credentials) (*session.Identity, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if s.flights == nil {
		return s.login(creds)
	}

	v, err, _ := s.flights.Do("login\x00"+creds.Username+"\x00"+creds.Password, func() (any, error) {
		return s.login(creds)
	})
	id, _ := v.(*session.Identity)
	return id, err
}

func (s *Service) login(creds Credentials) (*session.Identity, error) {
	if _, err := s.client.PostJSON(EndpointLogin, creds); err != nil {
		s.logger.Error().Err(err).Str("username", creds.Username).Msg("login failed")
		return nil, fmt.Errorf("login failed: %w", err)
	}

	s.GetUser()

	s.notifier.Success(MsgLoginSuccess)
	return s.store.Read(), nil
}

// Logout ends the server session. On success the store is cleared and the
// navigator goes home; on failure nothing changes and only the Outcome says so.
func (s *Service) Logout() Outcome {
	if _, err := s.client.Post(EndpointLogout); err != nil {
		s.logger.Error().Err(err).Msg("logout failed")
		return failed("logout", err)
	}

	s.store.Clear()
	if err := s.nav.Push(router.HomePath); err != nil {
		s.logger.Warn().Err(err).Msg("failed to navigate home after logout")
	}
	s.notifier.Success(MsgLogoutSuccess)

	return succeeded("logout")
}

// Stage is how far a registration got
type Stage int

const (
	StageRegisteredLoginSucceeded Stage = iota + 1
	StageRegisteredLoginFailed
)

func (st Stage) String() string {
	switch st {
	case StageRegisteredLoginSucceeded:
		return "registered+login-succeeded"
	case StageRegisteredLoginFailed:
		return "registered+login-failed"
	default:
		return "unknown"
	}
}

// RegistrationResult describes a registration whose profile was created
type RegistrationResult struct {
	Stage    Stage
	Identity *session.Identity
	LoginErr error
}

// Register creates a profile, then logs in with payload's email and password.
// A failed profile creation returns (nil, err) and attempts no login. Once
// the profile exists, the error returned is exactly Login's.
func (s *Service) Register(payload RegistrationPayload) (*RegistrationResult, error) {
	body, contentType, err := payload.encode()
	if err != nil {
		return nil, fmt.Errorf("failed to build registration form: %w", err)
	}

	if _, err := s.client.PostForm(EndpointRegister, contentType, body); err != nil {
		s.logger.Error().Err(err).Strs("fields", payload.Fields()).Msg("registration failed")
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	s.notifier.Success(MsgRegisterSuccess)

	id, err := s.Login(Credentials{
		Username: payload.text("email"),
		Password: payload.text("password"),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("login after registration failed")
		return &RegistrationResult{Stage: StageRegisteredLoginFailed, LoginErr: err}, err
	}

	return &RegistrationResult{Stage: StageRegisteredLoginSucceeded, Identity: id}, nil
}

// GetUser refreshes the store from the session endpoint. Any failure,
// including "not authenticated", empties the store. It never returns an error.
func (s *Service) GetUser() Outcome {
	if s.flights == nil {
		return s.getUser()
	}

	v, _, _ := s.flights.Do("session", func() (any, error) {
		return s.getUser(), nil
	})
	return v.(Outcome)
}

func (s *Service) getUser() Outcome {
	resp, err := s.client.Get(EndpointSession)
	if err == nil {
		var id *session.Identity
		if id, err = session.NewIdentity(resp.Body); err == nil {
			s.store.Set(id)
			return succeeded("session")
		}
		err = fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	s.store.Clear()

	outcome := failed("session", err)
	if outcome.Unauthenticated() {
		s.logger.Info().Err(err).Msg("no active session")
	} else {
		s.logger.Error().Err(err).Msg("failed to fetch user session")
	}
	return outcome
}
