package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/fieldsync/internal/config"
	"github.com/zulandar/fieldsync/internal/db"
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
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Fieldsync database",
		Long:  "Opens the configured store and migrates all tables. Safe to re-run; existing data is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Fieldsync config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return err
	}
	if cfg.Database.UseMySQL() {
		fmt.Fprintf(out, "Connected to hub store %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	} else {
		fmt.Fprintf(out, "Opened device store %s\n", cfg.Database.Path)
	}

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nFieldsync database initialized successfully.")
	return nil
}
