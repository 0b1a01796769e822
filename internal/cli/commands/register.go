package commands

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/auth"
	"github.com/hireloop-dev/hireloop/internal/cli/userconfig"
)

// registerOptions are the flags of the register command
type registerOptions struct {
	server    string
	email     string
	password  string
	role      string
	firstName string
	lastName  string
	fields    []string
	files     []string
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a job board account and log in",
		Long: `Create a job board account and log in with it.

Extra profile fields are sent as-is. Files are uploaded as form parts.

Examples:
  $ hireloop register --email ada@example.com --role jobseeker
  $ hireloop register --email hr@acme.test --role employer \
      --field company_name=Acme --file company_logo=./logo.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return runRegister(env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "Server alias (default: selected server)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address, also used as the username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set HIRELOOP_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.role, "role", "", "Account role: jobseeker or employer")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "", "Last name")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Extra profile field as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.files, "file", nil, "File to upload as key=path (repeatable)")

	return cmd
}

// splitPair parses a key=value flag
func splitPair(flag, raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid --%s %q, expected key=value", flag, raw)
	}
	return strings.TrimSpace(key), value, nil
}

// optionalText leaves empty flags out of the form
func optionalText(v string) auth.FormValue {
	if v == "" {
		return nil
	}
	return auth.Text(v)
}

// buildPayload turns flags into form values. Opened files are returned so the
// caller can close them once the form is sent.
func buildPayload(opts registerOptions, password string) (auth.RegistrationPayload, []*os.File, error) {
	payload := auth.RegistrationPayload{
		"email":      optionalText(opts.email),
		"password":   optionalText(password),
		"role":       optionalText(opts.role),
		"first_name": optionalText(opts.firstName),
		"last_name":  optionalText(opts.lastName),
	}

	for _, raw := range opts.fields {
		key, value, err := splitPair("field", raw)
		if err != nil {
			return nil, nil, err
		}
		payload[key] = auth.Text(value)
	}

	var opened []*os.File
	for _, raw := range opts.files {
		key, path, err := splitPair("file", raw)
		if err != nil {
			closeAll(opened)
			return nil, nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll(opened)
			return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		opened = append(opened, f)

		payload[key] = &auth.File{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Content:     f,
		}
	}

	return payload, opened, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

func runRegister(env *commandEnv, opts registerOptions) error {
	if opts.email == "" {
		return fmt.Errorf("email is required (use --email flag)")
	}
	if opts.role != "" && opts.role != "jobseeker" && opts.role != "employer" {
		return fmt.Errorf("invalid role '%s', must be one of: jobseeker, employer", opts.role)
	}

	s, err := env.openSession(opts.server)
	if err != nil {
		return err
	}
	defer s.close()

	password := opts.password
	if password == "" {
		password = env.settings.Credentials.Password
	}
	if password == "" {
		if env.readPassword == nil {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or HIRELOOP_PASSWORD env var)")
		}
		if password, err = env.readPassword(); err != nil {
			return err
		}
	}

	payload, files, err := buildPayload(opts, password)
	if err != nil {
		return err
	}
	defer closeAll(files)

	fmt.Fprintf(env.out, "Registering %s on %s (%s)...\n", opts.email, s.server.Alias, s.server.URL)

	result, err := s.service.Register(payload)
	if result == nil {
		return err
	}

	if err := userconfig.SetLastUsername(s.server.URL, opts.email); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remember username")
	}

	if result.Stage == auth.StageRegisteredLoginFailed {
		return fmt.Errorf("account created, but login failed: %w\nRun 'hireloop login' to try again", result.LoginErr)
	}
	if result.Identity == nil {
		fmt.Fprintln(env.out, "⚠ Account created and logged in, but the session could not be loaded. Run 'hireloop whoami' to retry.")
		return nil
	}

	printIdentity(env, result.Identity)
	return nil
}
