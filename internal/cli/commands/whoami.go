package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/session"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var server string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runWhoami(env, server, asJSON)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server alias (default: selected server)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw session payload")

	return cmd
}

func runWhoami(env *commandEnv, server string, asJSON bool) error {
	s, err := env.openSession(server)
	if err != nil {
		return err
	}
	defer s.close()

	outcome := s.service.GetUser()
	id := s.store.Read()

	if id == nil {
		if outcome.OK() || outcome.Unauthenticated() {
			fmt.Fprintln(env.out, "Not logged in")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", outcome.Err)
	}

	if asJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, id.Raw(), "", "  "); err != nil {
			return fmt.Errorf("failed to format session: %w", err)
		}
		fmt.Fprintln(env.out, buf.String())
		return nil
	}

	printIdentity(env, id)
	return nil
}

// printIdentity shows who is logged in
func printIdentity(env *commandEnv, id *session.Identity) {
	name := id.DisplayName()
	if name == "" {
		name = string(id.Raw())
	}
	fmt.Fprintf(env.out, "  User: %s\n", name)
	if roles := id.Roles(); len(roles) > 0 {
		fmt.Fprintf(env.out, "  Role: %s\n", strings.Join(roles, ", "))
	}
}
