package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/config"
	"github.com/zulandar/polyglot/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relay tables",
		Long:  "Creates the channel, link, and message record tables (sqlite/mysql) or indexes (mongo).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, cfg *config.Config, s *stores) error {
		fmt.Fprintf(out, "Connected to %s\n", s.describe)
		if err := s.migrate(ctx); err != nil {
			return err
		}
		if cfg.Store.Driver == config.DriverMongo {
			fmt.Fprintf(out, "Indexes ensured\n")
		} else {
			fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
		}
		return nil
	})
}
