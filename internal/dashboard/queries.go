package dashboard

import (
	"time"

	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/reconcile"
	"github.com/zulandar/fieldsync/internal/syncq"
	"gorm.io/gorm"
)

// EntityStateCount holds per-state record counts for one entity type.
type EntityStateCount struct {
	EntityType  string `json:"entityType"`
	Local       int    `json:"local"`
	PendingPush int    `json:"pendingPush"`
	InFlight    int    `json:"inFlight"`
	Synced      int    `json:"synced"`
	Conflict    int    `json:"conflict"`
	Total       int    `json:"total"`
}

// StatusSummary is the dashboard's top-level sync health view.
type StatusSummary struct {
	QueueDepth int64              `json:"queueDepth"`
	Held       int64              `json:"held"` // parked changes awaiting user action
	Entities   []EntityStateCount `json:"entities"`
}

// Summary aggregates queue depth and per-state counts across all entity
// types.
func Summary(db *gorm.DB) (*StatusSummary, error) {
	depth, err := syncq.QueueDepth(db)
	if err != nil {
		return nil, err
	}

	var held int64
	if err := db.Model(&models.ChangeRecord{}).
		Where("attempts >= ?", syncq.DefaultRetryBudget).Count(&held).Error; err != nil {
		return nil, err
	}

	summary := &StatusSummary{QueueDepth: depth, Held: held}
	for _, entityType := range syncq.EntityTypes() {
		table, err := syncq.TableName(entityType)
		if err != nil {
			return nil, err
		}
		type row struct {
			SyncState string
			Count     int
		}
		var rows []row
		if err := db.Table(table).
			Select("sync_state, count(*) as count").
			Group("sync_state").Find(&rows).Error; err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		ec := EntityStateCount{EntityType: entityType}
		for _, r := range rows {
			ec.Total += r.Count
			switch r.SyncState {
			case models.StateLocal:
				ec.Local += r.Count
			case models.StatePendingPush:
				ec.PendingPush += r.Count
			case models.StateInFlight:
				ec.InFlight += r.Count
			case models.StateSynced:
				ec.Synced += r.Count
			case models.StateConflict:
				ec.Conflict += r.Count
			}
		}
		summary.Entities = append(summary.Entities, ec)
	}
	return summary, nil
}

// QueueRow holds one pending change for display.
type QueueRow struct {
	Seq        uint      `json:"seq"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Op         string    `json:"op"`
	Attempts   int       `json:"attempts"`
	Held       bool      `json:"held"`
	LastError  string    `json:"lastError,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// QueueList returns every queued change in drain order, held rows included.
func QueueList(db *gorm.DB) ([]QueueRow, error) {
	var changes []models.ChangeRecord
	if err := db.Order("seq ASC").Find(&changes).Error; err != nil {
		return nil, err
	}
	rows := make([]QueueRow, len(changes))
	for i, c := range changes {
		rows[i] = QueueRow{
			Seq:        c.Seq,
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			Op:         c.Op,
			Attempts:   c.Attempts,
			Held:       c.Attempts >= syncq.DefaultRetryBudget,
			LastError:  c.LastError,
			EnqueuedAt: c.EnqueuedAt,
		}
	}
	return rows, nil
}

// ConflictRow holds one resolved conflict for display.
type ConflictRow struct {
	EntityType      string    `json:"entityType"`
	EntityID        string    `json:"entityId"`
	Winner          string    `json:"winner"`
	LocalUpdatedAt  time.Time `json:"localUpdatedAt"`
	RemoteUpdatedAt time.Time `json:"remoteUpdatedAt"`
	ResolvedAt      time.Time `json:"resolvedAt"`
	Note            string    `json:"note,omitempty"`
}

// RecentConflicts returns the newest resolved conflicts, most recent first.
func RecentConflicts(db *gorm.DB, limit int) ([]ConflictRow, error) {
	logs, err := reconcile.Recent(db, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]ConflictRow, len(logs))
	for i, l := range logs {
		rows[i] = ConflictRow{
			EntityType:      l.EntityType,
			EntityID:        l.EntityID,
			Winner:          l.Winner,
			LocalUpdatedAt:  l.LocalUpdatedAt,
			RemoteUpdatedAt: l.RemoteUpdatedAt,
			ResolvedAt:      l.ResolvedAt,
			Note:            l.Note,
		}
	}
	return rows, nil
}
