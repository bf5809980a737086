package main

import (
	"strings"
	"testing"
)

func TestSyncStatusCmd(t *testing.T) {
	cfgPath := writeTestConfig(t)
	runFsy(t, "db", "init", "-c", cfgPath)

	out := runFsy(t, "sync", "status", "-c", cfgPath)
	if !strings.Contains(out, "Queue depth: 0") {
		t.Errorf("status on empty store = %q", out)
	}

	runFsy(t, "client", "add", "-c", cfgPath, "--company", "Acme Roofing")
	runFsy(t, "lead", "add", "-c", cfgPath, "--name", "Reroof")

	out = runFsy(t, "sync", "status", "-c", cfgPath)
	if !strings.Contains(out, "Queue depth: 2") {
		t.Errorf("status after mutations = %q", out)
	}
	if !strings.Contains(out, "client") || !strings.Contains(out, "lead") {
		t.Errorf("expected per-entity rows, got: %s", out)
	}
	if !strings.Contains(out, "upsert") {
		t.Errorf("expected queued changes listed, got: %s", out)
	}
}

func TestSyncDrainCmd_RequiresToken(t *testing.T) {
	cfgPath := writeTestConfig(t)
	runFsy(t, "db", "init", "-c", cfgPath)

	out, err := runFsyErr("sync", "drain", "-c", cfgPath)
	if err == nil {
		t.Fatalf("expected drain without remote.token to fail, got: %s", out)
	}
	if !strings.Contains(err.Error(), "remote.token") {
		t.Errorf("error = %v, want to mention remote.token", err)
	}
}

func TestSyncCmd_Help(t *testing.T) {
	out := runFsy(t, "sync", "--help")
	for _, sub := range []string{"status", "drain", "run"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := newServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}
	cfgFlag := cmd.Flags().Lookup("config")
	if cfgFlag == nil {
		t.Fatal("expected --config flag")
	}
	if cfgFlag.DefValue != defaultConfigPath {
		t.Errorf("--config default = %q, want %q", cfgFlag.DefValue, defaultConfigPath)
	}
	if cmd.Flags().Lookup("addr") == nil {
		t.Error("expected --addr flag")
	}
}
