package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestSyncFields(t *testing.T) {
	typ := reflect.TypeOf(SyncFields{})

	assertGormTag(t, typ, "LocalID", "primaryKey")
	assertGormTag(t, typ, "LocalID", "size:36")
	assertGormTag(t, typ, "BackendID", "index")
	assertGormTag(t, typ, "IsSynced", "default:false")
	assertGormTag(t, typ, "SyncState", "default:local")
}

func TestChangeRecord_CoalescingIndex(t *testing.T) {
	typ := reflect.TypeOf(ChangeRecord{})

	// EntityType and EntityID share a unique index so repeated enqueues
	// coalesce into a single row.
	assertGormTag(t, typ, "EntityType", "uniqueIndex:idx_change_entity")
	assertGormTag(t, typ, "EntityID", "uniqueIndex:idx_change_entity")
	assertGormTag(t, typ, "Seq", "autoIncrement")
}

func TestClient_DisplayName(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{"full name", Client{FirstName: "Ada", LastName: "Moreno"}, "Ada Moreno"},
		{"first only", Client{FirstName: "Ada"}, "Ada"},
		{"last only", Client{LastName: "Moreno"}, "Moreno"},
		{"company fallback", Client{Company: "Moreno Landscaping"}, "Moreno Landscaping"},
		{"name beats company", Client{FirstName: "Ada", Company: "Moreno Landscaping"}, "Ada"},
		{"placeholder", Client{}, "Unnamed Client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Relations(t *testing.T) {
	typ := reflect.TypeOf(Client{})

	assertGormTag(t, typ, "Measurements", "foreignKey:ClientID")
	assertGormTag(t, typ, "Bids", "foreignKey:ClientID")
	assertGormTag(t, typ, "Jobs", "foreignKey:ClientID")
}

func TestBid_Relations(t *testing.T) {
	typ := reflect.TypeOf(Bid{})

	assertGormTag(t, typ, "Number", "uniqueIndex")
	assertGormTag(t, typ, "LineItems", "foreignKey:BidID")
	assertGormTag(t, typ, "Signature", "foreignKey:BidID")
}

func TestCanTransitionLead(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{LeadNew, LeadContacted, true},
		{LeadNew, LeadQuoted, true},
		{LeadContacted, LeadNew, false},
		{LeadQuoted, LeadWon, true},
		{LeadWon, LeadLost, false},
		{LeadLost, LeadNew, true}, // reopen
		{LeadLost, LeadQuoted, false},
		{LeadNew, LeadNew, false},
		{LeadNew, "bogus", false},
		{"bogus", LeadNew, false},
	}
	for _, tt := range tests {
		if got := CanTransitionLead(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionLead(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionJob(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{JobScheduled, JobInProgress, true},
		{JobScheduled, JobComplete, true}, // skipping punch_list is fine
		{JobInProgress, JobScheduled, false},
		{JobPunchList, JobComplete, true},
		{JobComplete, JobPaid, true},
		{JobPaid, JobComplete, false},
		{JobPaid, JobPaid, false},
		{"cancelled", JobPaid, false},
	}
	for _, tt := range tests {
		if got := CanTransitionJob(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionJob(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionBid(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{BidDraft, BidSent, true},
		{BidDraft, BidAccepted, false},
		{BidSent, BidAccepted, true},
		{BidSent, BidDeclined, true},
		{BidSent, BidExpired, true},
		{BidAccepted, BidSent, false},
		{BidExpired, BidSent, false},
	}
	for _, tt := range tests {
		if got := CanTransitionBid(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionBid(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
