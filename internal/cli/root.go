package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hireloop-dev/hireloop/internal/cli/commands"
	"github.com/hireloop-dev/hireloop/internal/config"
	"github.com/hireloop-dev/hireloop/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hireloop",
		Short: "hireloop - Job board client",
		Long: `hireloop CLI - Log in to a job board and manage your session.

Sessions are cookie based. Cookies are kept in the OS keyring per server,
so a login lasts across invocations until you log out or it expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hireloop version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewOpenCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
