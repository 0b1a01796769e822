package commands

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/hireloop-dev/hireloop/internal/cli/auth"
	"github.com/hireloop-dev/hireloop/internal/cli/client"
	"github.com/hireloop-dev/hireloop/internal/cli/config"
	"github.com/hireloop-dev/hireloop/internal/cli/notify"
	"github.com/hireloop-dev/hireloop/internal/cli/router"
	"github.com/hireloop-dev/hireloop/internal/cli/serverselect"
	"github.com/hireloop-dev/hireloop/internal/cli/session"
	appconfig "github.com/hireloop-dev/hireloop/internal/config"
	"github.com/hireloop-dev/hireloop/internal/logger"
)

// commandEnv is what a command needs from the outside world.
// Tests build their own to avoid the keyring and the terminal.
type commandEnv struct {
	out      io.Writer
	settings *appconfig.Config
	cookies  auth.CookieStore
	logger   zerolog.Logger
	color    bool

	// readPassword prompts on the terminal; nil means non-interactive
	readPassword func() (string, error)
}

func newCommandEnv(out io.Writer) (*commandEnv, error) {
	settings, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	env := &commandEnv{
		out:      out,
		settings: settings,
		cookies:  auth.Default,
		logger:   logger.GetLogger(),
		color:    isTerminal(out),
	}
	if term.IsTerminal(int(syscall.Stdin)) {
		env.readPassword = promptPassword(out)
	}
	return env, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func promptPassword(out io.Writer) func() (string, error) {
	return func() (string, error) {
		fmt.Fprint(out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(out) // New line after password input
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(bytePassword), nil
	}
}

// getSelectedServer returns the API to talk to. HIRELOOP_API_URL wins over
// hireloop.json; otherwise the server is resolved from the project config.
func (e *commandEnv) getSelectedServer(serverAlias string) (*config.Server, error) {
	if e.settings.API.URL != "" && serverAlias == "" {
		apiURL, err := config.NormalizeURL(e.settings.API.URL)
		if err != nil {
			return nil, fmt.Errorf("HIRELOOP_API_URL: %w", err)
		}
		return &config.Server{Alias: "env", URL: apiURL}, nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'hireloop init <api-url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid API URL", config.ConfigFileName)
	}

	return server, nil
}

// apiSession is one CLI invocation's view of a server session: the
// client with cookies restored from the keyring, and the auth service
// maintaining its store.
type apiSession struct {
	server  *config.Server
	client  *client.Client
	store   *session.Store
	router  *router.Router
	service *auth.Service
	cookies auth.CookieStore
	logger  zerolog.Logger
}

func (e *commandEnv) openSession(serverAlias string) (*apiSession, error) {
	server, err := e.getSelectedServer(serverAlias)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("server", server.URL).Logger()

	opts := []client.Option{client.WithLogger(log)}
	if e.settings.API.Origin != "" {
		opts = append(opts, client.WithOrigin(e.settings.API.Origin))
	}
	c, err := client.New(server.URL, opts...)
	if err != nil {
		return nil, err
	}

	cookies, err := e.cookies.LoadCookies(server.URL)
	if err != nil {
		// A broken keyring entry only costs the saved session
		log.Warn().Err(err).Msg("failed to restore session cookies")
	}
	c.SetCookies(cookies)

	store := session.NewStore()
	nav := router.New(router.Routes(), router.WithGuard(store))

	svc := auth.NewService(c, store,
		auth.WithNotifier(notify.NewConsole(e.out, e.color)),
		auth.WithNavigator(nav),
		auth.WithLogger(log),
	)

	return &apiSession{
		server:  server,
		client:  c,
		store:   store,
		router:  nav,
		service: svc,
		cookies: e.cookies,
		logger:  log,
	}, nil
}

// persist writes the jar back to the keyring so the next invocation resumes
// the server session
func (s *apiSession) persist() error {
	if err := s.cookies.SaveCookies(s.server.URL, s.client.Cookies()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// close persists the session and releases connections. A failed save is
// logged, not returned: the operation itself already happened.
func (s *apiSession) close() {
	if err := s.persist(); err != nil {
		s.logger.Warn().Err(err).Msg("session not saved")
	}
	s.client.CloseIdleConnections()
}
