package syncq

import (
	"testing"

	"github.com/zulandar/fieldsync/internal/models"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		state, event string
		want         string
		wantErr      bool
	}{
		{models.StateLocal, EventEnqueue, models.StatePendingPush, false},
		{models.StatePendingPush, EventEnqueue, models.StatePendingPush, false},
		{models.StateSynced, EventEnqueue, models.StatePendingPush, false},
		{models.StateConflict, EventEnqueue, models.StatePendingPush, false},
		{models.StateInFlight, EventEnqueue, models.StatePendingPush, false},

		{models.StatePendingPush, EventPushStart, models.StateInFlight, false},
		{models.StateInFlight, EventPushOK, models.StateSynced, false},
		{models.StateInFlight, EventPushFail, models.StatePendingPush, false},
		{models.StateInFlight, EventRemoteNewer, models.StateConflict, false},
		{models.StateConflict, EventResolve, models.StateSynced, false},

		// Undefined pairs must error, not silently pass.
		{models.StateLocal, EventPushStart, "", true},
		{models.StateSynced, EventPushOK, "", true},
		{models.StateLocal, EventPushOK, "", true},
		{models.StatePendingPush, EventPushFail, "", true},
		{models.StateSynced, EventResolve, "", true},
		{models.StateConflict, EventPushStart, "", true},
		{"bogus", EventEnqueue, "", true},
		{models.StateLocal, "bogus", "", true},
	}
	for _, tt := range tests {
		got, err := Transition(tt.state, tt.event)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Transition(%s, %s) = %s, want error", tt.state, tt.event, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Transition(%s, %s): %v", tt.state, tt.event, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", tt.state, tt.event, got, tt.want)
		}
	}
}
