package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the job board session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runLogout(env, server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server alias (default: selected server)")

	return cmd
}

func runLogout(env *commandEnv, server string) error {
	s, err := env.openSession(server)
	if err != nil {
		return err
	}
	defer s.close()

	outcome := s.service.Logout()
	switch {
	case outcome.OK():
		return nil
	case outcome.Unauthenticated():
		fmt.Fprintln(env.out, "Not logged in")
		return nil
	default:
		return fmt.Errorf("logout failed: %w", outcome.Err)
	}
}
