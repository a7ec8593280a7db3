package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loadline/loadline/internal/config"
	"github.com/loadline/loadline/internal/db"
	"github.com/loadline/loadline/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "loadline.yaml", "path to Loadline config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gdb, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Using database %s\n", cfg.Database.Path)

	srv, err := server.New(server.Opts{Config: *cfg, DB: gdb})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx, out)
}

// loadConfig reads the config file when present and falls back to defaults
// plus environment overrides otherwise, so a bare binary still serves.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}
