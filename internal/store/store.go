// Package store is the entity store: the single owner of all local
// records. Every mutation goes through here so that validation, cascade
// rules, derived-value recomputation, and sync queueing happen together,
// atomically, under one mutation lock.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// Error taxonomy. Callers match with errors.Is.
var (
	// ErrValidation marks malformed input rejected before it reaches disk.
	ErrValidation = errors.New("validation failed")
	// ErrReferentialConflict marks a cascade/ownership rule violation.
	ErrReferentialConflict = errors.New("referential conflict")
	// ErrNotFound marks a lookup for an entity that doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrImmutable marks a write to a record that can no longer change.
	ErrImmutable = errors.New("immutable")
)

// Store owns the local entity graph. Mutations serialize on a single
// logical lock so cascades and aggregate recomputation always observe a
// consistent snapshot; reads go straight to the database.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// New creates a Store over an opened, migrated database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read-only collaborators (dashboard,
// sync drain). Mutations must go through Store methods.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// prepareNew stamps a fresh entity with a local identifier and the initial
// sync state.
func prepareNew(sf *models.SyncFields) {
	if sf.LocalID == "" {
		sf.LocalID = uuid.NewString()
	}
	sf.BackendID = ""
	sf.IsSynced = false
	sf.SyncState = models.StateLocal
}

// markQueued reflects a successful enqueue back onto the in-memory entity.
func markQueued(sf *models.SyncFields) {
	sf.IsSynced = false
	sf.SyncState = models.StatePendingPush
}

// first loads an entity by local identifier, mapping gorm's sentinel to
// the store taxonomy.
func first(tx *gorm.DB, ent any, localID string) error {
	err := tx.Where("local_id = ?", localID).First(ent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: %T %s: %w", ent, localID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: load %T %s: %w", ent, localID, err)
	}
	return nil
}

// enqueueUpsert queues a push for a mutated entity inside its transaction.
func enqueueUpsert(tx *gorm.DB, entityType string, sf *models.SyncFields) error {
	return syncq.Enqueue(tx, entityType, sf.LocalID, models.OpUpsert, sf.BackendID)
}

// enqueueDelete queues a remote delete inside the deleting transaction.
// Never-pushed entities have no remote counterpart; Enqueue cancels their
// pending change instead.
func enqueueDelete(tx *gorm.DB, entityType string, sf *models.SyncFields) error {
	return syncq.Enqueue(tx, entityType, sf.LocalID, models.OpDelete, sf.BackendID)
}
