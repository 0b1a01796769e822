package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/auth"
	"github.com/hireloop-dev/hireloop/internal/cli/userconfig"
)

type loginOptions struct {
	server   string
	username string
	password string
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the job board",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runLogin(env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "Server alias (default: selected server)")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username (or set HIRELOOP_USERNAME)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set HIRELOOP_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(env *commandEnv, opts loginOptions) error {
	s, err := env.openSession(opts.server)
	if err != nil {
		return err
	}
	defer s.close()

	// Flags, then environment, then what was used last time
	username := opts.username
	if username == "" {
		username = env.settings.Credentials.Username
	}
	if username == "" {
		if last, err := userconfig.GetLastUsername(s.server.URL); err == nil {
			username = last
		}
	}

	password := opts.password
	if password == "" {
		password = env.settings.Credentials.Password
	}
	if password == "" && username != "" {
		if env.readPassword == nil {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or HIRELOOP_PASSWORD env var)")
		}
		if password, err = env.readPassword(); err != nil {
			return err
		}
	}

	fmt.Fprintf(env.out, "Logging in to %s (%s)...\n", s.server.Alias, s.server.URL)

	id, err := s.service.Login(auth.Credentials{Username: username, Password: password})
	if err != nil {
		if auth.KindOf(err) == auth.KindValidation {
			return fmt.Errorf("%w (use --username/--password flags or HIRELOOP_USERNAME/HIRELOOP_PASSWORD env vars)", err)
		}
		return err
	}

	if err := userconfig.SetLastUsername(s.server.URL, username); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remember username")
	}

	if id == nil {
		fmt.Fprintln(env.out, "⚠ Credentials accepted, but the session could not be loaded. Run 'hireloop whoami' to retry.")
		return nil
	}

	printIdentity(env, id)
	return nil
}
