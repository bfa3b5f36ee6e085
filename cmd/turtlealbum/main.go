package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erazemk/turtlealbum/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "turtlealbum",
	Short: "Breeder album and catalogue server",
	Long: `turtlealbum serves a public album of breeding turtles with their
lineage, breeding log and photos, plus an admin API to manage them.

Configuration is read from a YAML file (--config), then TURTLEALBUM_*
environment variables, then command-line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "turtlealbum.yaml", "config file path (missing file uses defaults)")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN or SQLite file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("db-driver", &cfg.Database.Driver)
	override("dsn", &cfg.Database.DSN)
	override("log-level", &cfg.Log.Level)
	override("log-file", &cfg.Log.File)
	if flags.Lookup("addr") != nil {
		override("addr", &cfg.Server.Addr)
	}
	if flags.Lookup("frontend-dir") != nil {
		override("frontend-dir", &cfg.Server.FrontendDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// SIGINT and SIGTERM cancel the command context: serve shuts down
	// gracefully and import stops between rows.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
