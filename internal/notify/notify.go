// Package notify fans sync events out to user-facing channels. Delivery is
// best-effort: the sync engine never fails a drain because a notification
// could not be sent.
package notify

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Event kinds.
const (
	KindSyncStalled    = "sync_stalled"    // retry budget exhausted, user action needed
	KindRemoteRejected = "remote_rejected" // remote validation failure, not retried
	KindConflict       = "conflict"        // auto-resolved, recorded for visibility
)

// Event is a user-visible sync notification.
type Event struct {
	Kind       string
	EntityType string
	EntityID   string
	Detail     string
	OccurredAt time.Time
}

// Title returns a short headline for the event.
func (e Event) Title() string {
	switch e.Kind {
	case KindSyncStalled:
		return "Sync stalled: " + e.EntityType + " " + e.EntityID
	case KindRemoteRejected:
		return "Sync rejected: " + e.EntityType + " " + e.EntityID
	case KindConflict:
		return "Sync conflict resolved: " + e.EntityType + " " + e.EntityID
	}
	return "Sync event: " + e.EntityType + " " + e.EntityID
}

// Adapter delivers events to one channel (desktop command, Slack, Discord).
type Adapter interface {
	Send(ctx context.Context, ev Event) error
}

// Fanout delivers each event to every adapter, logging failures instead of
// returning them.
type Fanout struct {
	adapters []Adapter
	logger   *log.Logger
}

// NewFanout builds a Fanout over the given adapters. A nil logger uses the
// standard logger.
func NewFanout(logger *log.Logger, adapters ...Adapter) *Fanout {
	if logger == nil {
		logger = log.Default()
	}
	return &Fanout{adapters: adapters, logger: logger}
}

// Publish sends the event to all adapters.
func (f *Fanout) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	for _, a := range f.adapters {
		if err := a.Send(ctx, ev); err != nil {
			f.logger.Printf("notify: %T: %v", a, err)
		}
	}
}

// CommandAdapter shells out to a user-configured command template, e.g.
// "notify-send 'Fieldsync' '{{.Title}}'".
type CommandAdapter struct {
	Command string
}

// Send runs the templated command.
func (c *CommandAdapter) Send(ctx context.Context, ev Event) error {
	if c.Command == "" {
		return nil
	}
	cmdStr := templateEvent(c.Command, ev)
	out, err := exec.CommandContext(ctx, "sh", "-c", cmdStr).CombinedOutput()
	if err != nil {
		log.Printf("notify: command failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateEvent replaces placeholders in the command template with event values.
func templateEvent(command string, ev Event) string {
	r := strings.NewReplacer(
		"{{.Title}}", ev.Title(),
		"{{.Kind}}", ev.Kind,
		"{{.EntityType}}", ev.EntityType,
		"{{.EntityID}}", ev.EntityID,
		"{{.Detail}}", ev.Detail,
	)
	return r.Replace(command)
}
