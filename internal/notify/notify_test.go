package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"testing"
)

func TestEvent_Title(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{KindSyncStalled, "Sync stalled"},
		{KindRemoteRejected, "Sync rejected"},
		{KindConflict, "Sync conflict resolved"},
		{"other", "Sync event"},
	}
	for _, tt := range tests {
		ev := Event{Kind: tt.kind, EntityType: "bid", EntityID: "loc-1"}
		if got := ev.Title(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Title(%q) = %q, want prefix %q", tt.kind, got, tt.want)
		}
	}
}

func TestFanout_DeliversToAll(t *testing.T) {
	a := NewMockAdapter()
	b := NewMockAdapter()
	f := NewFanout(nil, a, b)

	f.Publish(context.Background(), Event{Kind: KindSyncStalled, EntityType: "job", EntityID: "loc-2"})

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("events: a=%d b=%d, want 1 each", len(a.Events()), len(b.Events()))
	}
	if a.Events()[0].OccurredAt.IsZero() {
		t.Error("OccurredAt should be stamped")
	}
}

func TestFanout_AdapterFailureIsLoggedNotFatal(t *testing.T) {
	bad := NewMockAdapter()
	bad.Err = fmt.Errorf("boom")
	good := NewMockAdapter()

	var buf bytes.Buffer
	f := NewFanout(log.New(&buf, "", 0), bad, good)
	f.Publish(context.Background(), Event{Kind: KindConflict})

	if len(good.Events()) != 1 {
		t.Error("good adapter should still receive the event")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("failure not logged: %q", buf.String())
	}
}

func TestTemplateEvent(t *testing.T) {
	ev := Event{Kind: KindSyncStalled, EntityType: "bid", EntityID: "loc-7", Detail: "5 attempts"}
	got := templateEvent("notify-send '{{.Title}}' '{{.Detail}}'", ev)
	if !strings.Contains(got, "Sync stalled: bid loc-7") || !strings.Contains(got, "5 attempts") {
		t.Errorf("templated = %q", got)
	}
}
