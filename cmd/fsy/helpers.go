package main

import (
	"fmt"
	"time"

	"github.com/zulandar/fieldsync/internal/config"
	"github.com/zulandar/fieldsync/internal/db"
	"github.com/zulandar/fieldsync/internal/store"
	"gorm.io/gorm"
)

const defaultConfigPath = "fieldsync.yaml"

// openFromConfig loads the config file and opens the configured database.
func openFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gdb, nil
}

// openDB connects to the SQLite device store, or the MySQL hub store when
// one is configured.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.UseMySQL() {
		return db.ConnectMySQL(cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}
	return db.Open(cfg.Database.Path)
}

// storeFromConfig is openFromConfig wrapped in an entity store.
func storeFromConfig(configPath string) (*config.Config, *store.Store, error) {
	cfg, gdb, err := openFromConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store.New(gdb), nil
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// money formats a dollar amount for table output.
func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// timeOrDash formats an optional timestamp.
func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// orDash substitutes a placeholder for empty table cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
