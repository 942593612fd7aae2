// Package cli implements the puzzlepals-backup maintenance tool.
package cli

import (
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"puzzlepals/internal/app"
	"puzzlepals/internal/config"
)

// options holds flag values that override the environment configuration
type options struct {
	dbPath    string
	dbDriver  string
	remote    string
	remoteURL string
	logLevel  string
}

// runtime is the state shared by subcommands once the root pre-run succeeds
type runtime struct {
	opts options
	app  *app.App
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runtime{})
}

func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "puzzlepals-backup",
		Short: "Backup and sync tool for a puzzlepals device database",
		Long: `puzzlepals-backup exports and imports the local device database as JSON
and pushes or pulls an identity's snapshot to the configured remote store.

Settings come from the PUZZLEPALS_* environment variables; flags override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&rt.opts.dbPath, "db", "", "Local database path (env: PUZZLEPALS_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&rt.opts.dbDriver, "driver", "", "Local database driver: sqlite3 or sqlite (env: PUZZLEPALS_DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&rt.opts.remote, "remote", "", "Remote driver: none, memory, redis, s3, postgres, mysql, sqlite (env: PUZZLEPALS_REMOTE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&rt.opts.remoteURL, "remote-url", "", "Remote connection URL (env: PUZZLEPALS_REMOTE_URL)")
	rootCmd.PersistentFlags().StringVar(&rt.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: PUZZLEPALS_LOG_LEVEL)")

	rootCmd.AddCommand(newExportCmd(rt))
	rootCmd.AddCommand(newImportCmd(rt))
	rootCmd.AddCommand(newPushCmd(rt))
	rootCmd.AddCommand(newPullCmd(rt))

	// cobra skips post-run hooks when RunE fails, so each command closes the app itself
	for _, sub := range rootCmd.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() { err = errors.Join(err, rt.close()) }()
			return run(cmd, args)
		}
	}

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (rt *runtime) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if rt.opts.dbPath != "" {
		cfg.DatabasePath = rt.opts.dbPath
	}
	if rt.opts.dbDriver != "" {
		cfg.DatabaseDriver = rt.opts.dbDriver
	}
	if rt.opts.remote != "" {
		cfg.RemoteDriver = rt.opts.remote
	}
	if rt.opts.remoteURL != "" {
		cfg.RemoteURL = rt.opts.remoteURL
	}
	if rt.opts.logLevel != "" {
		cfg.LogLevel = rt.opts.logLevel
	}

	logger := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	// Sync counters are not scraped from a one-shot tool
	a, err := app.New(cmd.Context(), cfg, app.Options{Logger: logger, Registerer: prometheus.NewRegistry()})
	if err != nil {
		return err
	}
	rt.app = a
	return nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}
