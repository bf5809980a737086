// Package reconcile resolves divergence between local and remote versions
// of a record. Policy: last-writer-wins by timestamp, remote wins exact
// ties (the server is the arbiter of simultaneity). Resolution is at record
// granularity; the losing side's fields are discarded wholesale.
package reconcile

import (
	"fmt"
	"time"

	"github.com/zulandar/fieldsync/internal/models"
	"gorm.io/gorm"
)

// Winners.
const (
	WinnerLocal  = "local"
	WinnerRemote = "remote"
)

// Resolve picks the winning side. localUpdatedAt is the local record's last
// mutation time, remoteVersion the remote's version timestamp.
func Resolve(localUpdatedAt, remoteVersion time.Time) string {
	if localUpdatedAt.After(remoteVersion) {
		return WinnerLocal
	}
	return WinnerRemote
}

// Log appends a conflict audit row. Conflicts are resolved silently per
// policy but always recorded.
func Log(db *gorm.DB, entityType, entityID, winner string, localAt, remoteAt time.Time, note string) error {
	row := models.ConflictLog{
		EntityType:      entityType,
		EntityID:        entityID,
		Winner:          winner,
		LocalUpdatedAt:  localAt,
		RemoteUpdatedAt: remoteAt,
		ResolvedAt:      time.Now(),
		Note:            note,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("reconcile: log conflict for %s %s: %w", entityType, entityID, err)
	}
	return nil
}

// Recent returns the newest conflict audit rows, most recent first.
func Recent(db *gorm.DB, limit int) ([]models.ConflictLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ConflictLog
	if err := db.Order("resolved_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reconcile: list conflicts: %w", err)
	}
	return rows, nil
}
