package syncq

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/models"
)

// Events driving per-record sync state transitions.
const (
	EventEnqueue     = "enqueue"      // a local mutation was queued
	EventPushStart   = "push_start"   // drain picked the record up
	EventPushOK      = "push_ok"      // remote confirmed the push
	EventPushFail    = "push_fail"    // transient failure, back to the queue
	EventRemoteNewer = "remote_newer" // remote holds a newer version
	EventResolve     = "resolve"      // reconciliation settled the record
)

// Transition is the total transition function of the per-record sync state
// machine. Undefined (state, event) pairs return an error instead of
// silently flipping flags.
//
//	local ──enqueue──▶ pending_push ──push_start──▶ in_flight ──push_ok──▶ synced
//	                        ▲                           │                     │
//	                        ├──────────push_fail────────┤                 enqueue
//	                        │                           │                     │
//	                        │                      remote_newer               ▼
//	                        │                           ▼               pending_push
//	                        └────────enqueue───── conflict ──resolve──▶ synced
func Transition(state, event string) (string, error) {
	switch event {
	case EventEnqueue:
		switch state {
		case models.StateLocal, models.StatePendingPush, models.StateSynced,
			models.StateConflict, models.StateInFlight:
			// A mutation mid-push re-queues the record; the in-flight
			// result is superseded.
			return models.StatePendingPush, nil
		}
	case EventPushStart:
		if state == models.StatePendingPush {
			return models.StateInFlight, nil
		}
	case EventPushOK:
		if state == models.StateInFlight {
			return models.StateSynced, nil
		}
	case EventPushFail:
		if state == models.StateInFlight {
			return models.StatePendingPush, nil
		}
	case EventRemoteNewer:
		if state == models.StateInFlight {
			return models.StateConflict, nil
		}
	case EventResolve:
		if state == models.StateConflict {
			return models.StateSynced, nil
		}
	}
	return "", fmt.Errorf("syncq: no transition from %q on %q", state, event)
}
