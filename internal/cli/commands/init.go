package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Add a job board API to hireloop.json",
		Long: `Add a job board API to hireloop.json in the current directory.

The file is created if it does not exist. Running init again with the same
URL updates its alias.

Examples:
  $ hireloop init http://localhost:8000/api
  $ hireloop init https://jobs.example.com/api --alias production`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Name for this server (default server-N)")

	return cmd
}

func runInit(out io.Writer, rawURL, alias string) error {
	apiURL, err := config.NormalizeURL(rawURL)
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	cfg, err := config.Load(configPath)
	isNewConfig := false
	switch {
	case err == nil:
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	case errors.Is(err, fs.ErrNotExist):
		cfg = &config.Config{Servers: []config.Server{}}
		isNewConfig = true
	default:
		return fmt.Errorf("failed to load existing config: %w", err)
	}

	existing, _ := cfg.GetServerByURL(apiURL)
	if existing != nil && (alias == "" || alias == existing.Alias) {
		fmt.Fprintf(out, "Server %s already exists in %s\n", apiURL, config.ConfigFileName)
		return nil
	}

	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if other, _ := cfg.GetServerByAlias(alias); other != nil && other.URL != apiURL {
		return fmt.Errorf("alias '%s' is already used by %s", alias, other.URL)
	}

	cfg.AddServer(config.Server{Alias: alias, URL: apiURL})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	switch {
	case isNewConfig:
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, apiURL, alias)
	case existing != nil:
		fmt.Fprintf(out, "✓ Renamed server %s to %s\n", apiURL, alias)
	default:
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", apiURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'hireloop register' to create an account, or")
	fmt.Fprintln(out, "  2. Run 'hireloop login' to authenticate")

	return nil
}
