// Package cli wires configuration, storage and transport into the
// tablebook command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/logger"
)

// Set with -ldflags at build time.
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// NewRoot returns the root command with every subcommand attached.
func NewRoot() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "tablebook",
		Short:         "Multi-tenant restaurant booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine; the environment may carry everything
			_ = godotenv.Load(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")

	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newConsumeCmd(),
		newMigrateCmd(),
		newTenantCmd(),
		newTableCmd(),
		newStaffCmd(),
		newBookCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env bundles what every server-side command needs.
type env struct {
	cfg config.Config
	log *zap.Logger
}

func loadEnv(validate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) dbSettings() database.Settings {
	return database.Settings{
		User: e.cfg.DBUser,
		Pass: e.cfg.DBPass,
		Host: e.cfg.DBHost,
		Port: e.cfg.DBPort,
		Name: e.cfg.DBName,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tablebook %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}
