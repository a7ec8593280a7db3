package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loadline/loadline/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the SQLite database and migrate all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, path)
		},
	}

	cmd.Flags().StringVar(&path, "path", "events.db", "path to the SQLite database file")
	return cmd
}

func runDBInit(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	gdb, err := db.Open(path)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables in %s\n", len(db.AllModels()), path)
	return nil
}
