package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a minimal config pointing at a SQLite store in a
// temp dir and returns the config path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "fieldsync.yaml")
	yaml := "database:\n  path: " + filepath.Join(dir, "fieldsync.db") + "\nremote:\n  base_url: http://127.0.0.1:9\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// runFsy executes the CLI with the given args and returns its output,
// failing the test on error.
func runFsy(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runFsyErr(args...)
	if err != nil {
		t.Fatalf("fsy %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// runFsyErr executes the CLI and returns output and error.
func runFsyErr(args ...string) (string, error) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// createdID extracts the entity ID from "Created <kind> <id> ..." output.
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "Created" {
		t.Fatalf("unexpected create output: %q", out)
	}
	return fields[2]
}

func TestVersionCmd(t *testing.T) {
	out := runFsy(t, "version")
	if !strings.Contains(out, "fsy dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRootCmd_Help(t *testing.T) {
	out := runFsy(t, "--help")
	for _, sub := range []string{"db", "client", "lead", "measurement", "bid", "job", "sync", "serve"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestUnknownConfigPath(t *testing.T) {
	if _, err := runFsyErr("client", "list", "-c", "/nonexistent/fieldsync.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
