package syncq

import (
	"fmt"
	"time"

	"github.com/zulandar/fieldsync/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Enqueue records a pending change for an entity and advances its sync
// state. Repeated enqueues for the same entity coalesce into one row
// (last-write-wins locally); Seq is assigned at first enqueue and survives
// coalescing, so drain order matches creation order and parents are pushed
// before the children that reference them.
//
// Call inside the same transaction as the mutation so the change record is
// atomic with the data it describes.
func Enqueue(tx *gorm.DB, entityType, entityID, op, backendID string) error {
	if _, err := TableName(entityType); err != nil {
		return err
	}
	if entityID == "" {
		return fmt.Errorf("syncq: entity ID is required")
	}
	if op != models.OpUpsert && op != models.OpDelete {
		return fmt.Errorf("syncq: unknown op %q", op)
	}

	// A delete for a record that was never pushed cancels the change
	// outright: there is nothing remote to delete.
	if op == models.OpDelete && backendID == "" {
		if err := tx.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
			Delete(&models.ChangeRecord{}).Error; err != nil {
			return fmt.Errorf("syncq: cancel pending change for %s %s: %w", entityType, entityID, err)
		}
		return nil
	}

	change := models.ChangeRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		BackendID:  backendID,
		EnqueuedAt: time.Now(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"op", "backend_id", "enqueued_at", "attempts", "last_error",
		}),
	}).Create(&change).Error
	if err != nil {
		return fmt.Errorf("syncq: enqueue %s %s: %w", entityType, entityID, err)
	}

	if op == models.OpUpsert {
		if err := markDirty(tx, entityType, entityID); err != nil {
			return err
		}
	}
	return nil
}

// markDirty moves the entity row to pending_push and clears its synced flag.
func markDirty(tx *gorm.DB, entityType, entityID string) error {
	table, err := TableName(entityType)
	if err != nil {
		return err
	}

	var state string
	if err := tx.Table(table).Where("local_id = ?", entityID).
		Pluck("sync_state", &state).Error; err != nil {
		return fmt.Errorf("syncq: read state of %s %s: %w", entityType, entityID, err)
	}
	if state == "" {
		state = models.StateLocal
	}

	next, err := Transition(state, EventEnqueue)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"sync_state": next, "is_synced": false}
	if err := tx.Table(table).Where("local_id = ?", entityID).Updates(updates).Error; err != nil {
		return fmt.Errorf("syncq: mark %s %s dirty: %w", entityType, entityID, err)
	}
	return nil
}

// Pending returns queued changes in drain order, skipping rows whose retry
// budget is exhausted (they stay visible to Status but are not retried
// until a new local mutation re-enqueues them).
func Pending(db *gorm.DB, retryBudget int) ([]models.ChangeRecord, error) {
	var changes []models.ChangeRecord
	if err := db.Where("attempts < ?", retryBudget).
		Order("seq ASC").Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("syncq: list pending: %w", err)
	}
	return changes, nil
}

// QueueDepth returns the number of queued changes, including held ones.
func QueueDepth(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&models.ChangeRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("syncq: queue depth: %w", err)
	}
	return n, nil
}

// complete removes a change row, but only if it wasn't re-enqueued while
// its push was in flight: a newer EnqueuedAt means a fresh local mutation
// that still needs pushing.
func complete(db *gorm.DB, change models.ChangeRecord) error {
	result := db.Where("entity_type = ? AND entity_id = ? AND enqueued_at = ?",
		change.EntityType, change.EntityID, change.EnqueuedAt).
		Delete(&models.ChangeRecord{})
	if result.Error != nil {
		return fmt.Errorf("syncq: complete %s %s: %w", change.EntityType, change.EntityID, result.Error)
	}
	return nil
}

// recordFailure bumps the attempt counter and stores the error text.
func recordFailure(db *gorm.DB, change models.ChangeRecord, attemptErr error, held bool) error {
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": attemptErr.Error(),
	}
	if held {
		// Non-retryable: park the row past any retry budget so only a new
		// local mutation revives it.
		updates["attempts"] = heldAttempts
	}
	if err := db.Model(&models.ChangeRecord{}).
		Where("seq = ?", change.Seq).Updates(updates).Error; err != nil {
		return fmt.Errorf("syncq: record failure for %s %s: %w", change.EntityType, change.EntityID, err)
	}
	return nil
}

// heldAttempts parks a change past any sane retry budget.
const heldAttempts = 1 << 20
