package commands

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/router"
)

// NewOpenCmd creates the open command
func NewOpenCmd() *cobra.Command {
	var server string
	var browser bool

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Check whether the current session may open a page",
		Long: `Check whether the current session may open a page of the web app.

The session is refreshed first, then the route guard decides: the page
is allowed, or the user is sent to /login (not logged in) or / (wrong role).

Examples:
  $ hireloop open /messages
  $ hireloop open /employer/job/42/applications --browser`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runOpen(env, server, args[0], browser)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server alias (default: selected server)")
	cmd.Flags().BoolVar(&browser, "browser", false, "Open the resulting page in the browser (needs HIRELOOP_ORIGIN)")

	return cmd
}

func runOpen(env *commandEnv, server, path string, browser bool) error {
	match, ok := router.Resolve(router.Routes(), path)
	if !ok {
		return fmt.Errorf("%w: %s", router.ErrNotFound, path)
	}
	if browser && env.settings.API.Origin == "" {
		return fmt.Errorf("HIRELOOP_ORIGIN is required to open the web app")
	}

	s, err := env.openSession(server)
	if err != nil {
		return err
	}
	defer s.close()

	s.service.GetUser()

	decision := router.Guard{Session: s.store}.Check(match.Route)
	if err := s.router.Push(path); err != nil {
		return err
	}
	target := s.router.Current()

	if decision == router.Allow {
		fmt.Fprintf(env.out, "%s %s (%s)\n", decision, target.Path, target.Route.Name)
	} else {
		fmt.Fprintf(env.out, "%s %s -> %s\n", decision, match.Path, target.Path)
	}

	if !browser {
		return nil
	}

	pageURL := strings.TrimRight(env.settings.API.Origin, "/") + target.Path
	if err := openBrowser(pageURL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, pageURL)
	}
	return nil
}

// openBrowser opens the URL in the default browser
var openBrowser = func(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
