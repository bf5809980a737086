package db

import (
	"strings"
	"testing"
)

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("fieldsync", "127.0.0.1", 3306, "fieldsync_hub")
	want := "fieldsync@tcp(127.0.0.1:3306)/fieldsync_hub?parseTime=true"
	if dsn != want {
		t.Errorf("MySQLDSN = %q, want %q", dsn, want)
	}
}

func TestOpenAndMigrate(t *testing.T) {
	gdb, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	// Every model table should exist after migration.
	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open("/nonexistent-dir/deeply/nested/fieldsync.db")
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if !strings.Contains(err.Error(), "db: open") {
		t.Errorf("error = %q", err)
	}
}
