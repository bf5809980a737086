package models

import "time"

// Sync states for every synchronizable entity.
const (
	StateLocal       = "local"        // created locally, never pushed
	StatePendingPush = "pending_push" // dirty, queued for push
	StateInFlight    = "in_flight"    // push in progress
	StateSynced      = "synced"       // remote identifier confirmed
	StateConflict    = "conflict"     // remote holds a newer version
)

// Change operations recorded in the pending queue.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// SyncFields is embedded in every entity that syncs with the service of
// record. LocalID is generated on-device and never changes; BackendID is
// assigned by the remote on first successful push.
type SyncFields struct {
	LocalID       string    `gorm:"primaryKey;size:36"`
	BackendID     string    `gorm:"size:64;index"`
	IsSynced      bool      `gorm:"default:false;index"`
	SyncState     string    `gorm:"size:16;default:local;index"`
	RemoteVersion time.Time // server version timestamp of the last synced snapshot
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sync returns the embedded sync bookkeeping fields. Every entity embeds
// SyncFields, so the method is promoted and any *Entity satisfies the
// syncq.Entity interface.
func (s *SyncFields) Sync() *SyncFields { return s }

// ChangeRecord is a pending change in the sync queue. One row per entity:
// repeated local mutations before the next drain coalesce into it, keeping
// the Seq assigned at first enqueue so drain order matches creation order.
type ChangeRecord struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	EntityType string `gorm:"size:32;not null;uniqueIndex:idx_change_entity"`
	EntityID   string `gorm:"size:36;not null;uniqueIndex:idx_change_entity"`
	Op         string `gorm:"size:16;not null;default:upsert"`
	BackendID  string `gorm:"size:64"` // captured for deletes, when the local row is already gone
	Attempts   int    `gorm:"default:0"`
	LastError  string `gorm:"type:text"`
	EnqueuedAt time.Time
}

// ConflictLog records an automatically resolved remote conflict for audit.
type ConflictLog struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	EntityType      string `gorm:"size:32;not null;index"`
	EntityID        string `gorm:"size:36;not null;index"`
	Winner          string `gorm:"size:8;not null"` // "local" or "remote"
	LocalUpdatedAt  time.Time
	RemoteUpdatedAt time.Time
	ResolvedAt      time.Time
	Note            string `gorm:"type:text"`
}

// SyncCheckpoint stores the last pull cursor per entity type.
type SyncCheckpoint struct {
	EntityType string    `gorm:"primaryKey;size:32"`
	PulledAt   time.Time // server timestamp of the newest record seen
}
