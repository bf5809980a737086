package main

import (
	"strings"
	"testing"
)

func TestBidLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t)
	runFsy(t, "db", "init", "-c", cfgPath)

	out := runFsy(t, "bid", "create", "-c", cfgPath,
		"--number", "B-1001", "--title", "Full reroof", "--tax-rate", "0.1")
	id := createdID(t, out)

	out = runFsy(t, "bid", "item", id, "-c", cfgPath,
		"--desc", "Shingles", "--qty", "10", "--price", "9.95")
	if !strings.Contains(out, "$99.50") {
		t.Errorf("item output = %q", out)
	}

	out = runFsy(t, "bid", "show", id, "-c", cfgPath)
	if !strings.Contains(out, "Subtotal: $99.50") || !strings.Contains(out, "Total:    $109.45") {
		t.Errorf("show output = %q", out)
	}

	runFsy(t, "bid", "send", id, "-c", cfgPath)
	runFsy(t, "bid", "sign", id, "-c", cfgPath, "--signer", "Dana Reyes")

	out = runFsy(t, "bid", "show", id, "-c", cfgPath)
	if !strings.Contains(out, "Status:   accepted") || !strings.Contains(out, "Dana Reyes") {
		t.Errorf("show after sign = %q", out)
	}

	// Signed bids are frozen.
	if _, err := runFsyErr("bid", "item", id, "-c", cfgPath, "--desc", "Extra", "--price", "5"); err == nil {
		t.Error("expected line item on signed bid to fail")
	}
}

func TestBidSignRequiresSentStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)
	runFsy(t, "db", "init", "-c", cfgPath)

	out := runFsy(t, "bid", "create", "-c", cfgPath, "--number", "B-2001")
	id := createdID(t, out)

	// draft → accepted skips sent and is rejected.
	if _, err := runFsyErr("bid", "sign", id, "-c", cfgPath, "--signer", "Dana"); err == nil {
		t.Error("expected signing a draft bid to fail")
	}
}

func TestJobLifecycleCmd(t *testing.T) {
	cfgPath := writeTestConfig(t)
	runFsy(t, "db", "init", "-c", cfgPath)

	clientOut := runFsy(t, "client", "add", "-c", cfgPath, "--company", "Acme Roofing")
	clientID := createdID(t, clientOut)

	bidOut := runFsy(t, "bid", "create", "-c", cfgPath,
		"--number", "B-3001", "--client", clientID, "--tax-rate", "0.1")
	bidID := createdID(t, bidOut)
	runFsy(t, "bid", "item", bidID, "-c", cfgPath, "--desc", "Labor", "--qty", "1", "--price", "100")

	// A job can only reference an accepted bid.
	if _, err := runFsyErr("job", "create", "-c", cfgPath, "--title", "Install", "--bid", bidID); err == nil {
		t.Error("expected job on draft bid to fail")
	}

	runFsy(t, "bid", "send", bidID, "-c", cfgPath)
	runFsy(t, "bid", "sign", bidID, "-c", cfgPath, "--signer", "Dana")

	jobOut := runFsy(t, "job", "create", "-c", cfgPath,
		"--title", "Install", "--client", clientID, "--bid", bidID, "--scheduled", "2026-09-01")
	jobID := createdID(t, jobOut)

	for _, status := range []string{"in_progress", "complete", "paid"} {
		runFsy(t, "job", "advance", jobID, status, "-c", cfgPath)
	}

	// Payment posted the bid total as client revenue.
	out := runFsy(t, "client", "show", clientID, "-c", cfgPath)
	if !strings.Contains(out, "Revenue: $110.00") {
		t.Errorf("client show = %q", out)
	}
}
