package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/config"
	"github.com/hireloop-dev/hireloop/internal/cli/serverselect"
	"github.com/hireloop-dev/hireloop/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ hireloop select-server                            # Interactive selection
  $ hireloop select-server http://localhost:8000/api  # Select by URL
  $ hireloop select-server production                 # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(cmd.OutOrStdout(), urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(out io.Writer, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'hireloop init <api-url>' to create a configuration file", err)
	}

	var server *config.Server

	if urlOrAlias != "" {
		server, err = findServer(cfg, urlOrAlias)
		if err != nil {
			return err
		}
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
		if err != nil {
			return err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(out, "Selected server: %s\n", serverselect.Label(*server))
	return nil
}

// findServer looks a server up by URL, then by alias
func findServer(cfg *config.Config, urlOrAlias string) (*config.Server, error) {
	if apiURL, err := config.NormalizeURL(urlOrAlias); err == nil {
		if server, err := cfg.GetServerByURL(apiURL); err == nil {
			return server, nil
		}
	}
	if server, err := cfg.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}
