package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/notify"
	"github.com/zulandar/fieldsync/internal/reconcile"
	"github.com/zulandar/fieldsync/internal/remote"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PullReport summarizes one pull pass.
type PullReport struct {
	Applied   int // remote records adopted locally
	Deleted   int // local records removed by remote tombstones
	Conflicts int // dirty records reconciled (either winner)
	Skipped   int // records where the local dirty copy won
}

// Pull fetches remote changes for every entity type since the last
// checkpoint and folds them into the local store under last-writer-wins.
func (d *Drainer) Pull(ctx context.Context) (PullReport, error) {
	var report PullReport

	for _, entityType := range EntityTypes() {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !d.conn.Online() {
			return report, nil
		}

		since, err := checkpoint(d.db, entityType)
		if err != nil {
			return report, err
		}
		records, err := d.api.Pull(ctx, entityType, since)
		if err != nil {
			d.logger.Printf("WARNING: pull %s: %v", entityType, err)
			continue
		}

		newest := since
		for _, rec := range records {
			if err := d.applyRemoteRecord(ctx, entityType, rec, &report); err != nil {
				d.logger.Printf("WARNING: apply %s %s: %v", entityType, rec.RemoteID, err)
				continue
			}
			if rec.Version.After(newest) {
				newest = rec.Version
			}
		}
		if newest.After(since) {
			if err := saveCheckpoint(d.db, entityType, newest); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

// applyRemoteRecord folds one pulled record into the local store.
func (d *Drainer) applyRemoteRecord(ctx context.Context, entityType string, rec remote.Record, report *PullReport) error {
	ent, err := NewEntity(entityType)
	if err != nil {
		return err
	}

	err = d.db.Where("backend_id = ?", rec.RemoteID).First(ent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && rec.LocalID != "" {
		err = d.db.Where("local_id = ?", rec.LocalID).First(ent).Error
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if rec.Deleted {
			return nil // tombstone for a record we never had
		}
		return d.adoptRemote(entityType, ent, rec, report)
	case err != nil:
		return fmt.Errorf("syncq: find %s %s: %w", entityType, rec.RemoteID, err)
	}

	sf := ent.Sync()
	dirty := !sf.IsSynced && sf.SyncState != models.StateSynced

	if rec.Deleted {
		if dirty && reconcile.Resolve(sf.UpdatedAt, rec.Version) == reconcile.WinnerLocal {
			// Local edit is newer than the remote delete; the record will be
			// re-pushed. Record granularity: the whole record survives.
			report.Skipped++
			return nil
		}
		if err := d.db.Where("local_id = ?", sf.LocalID).Delete(ent).Error; err != nil {
			return fmt.Errorf("syncq: delete %s %s: %w", entityType, sf.LocalID, err)
		}
		// The pending change, if any, is now moot.
		if err := d.db.Where("entity_type = ? AND entity_id = ?", entityType, sf.LocalID).
			Delete(&models.ChangeRecord{}).Error; err != nil {
			return fmt.Errorf("syncq: cancel change for %s %s: %w", entityType, sf.LocalID, err)
		}
		report.Deleted++
		if dirty {
			d.recordPullConflict(ctx, entityType, sf.LocalID, reconcile.WinnerRemote, sf.UpdatedAt, rec.Version)
			report.Conflicts++
		}
		return nil
	}

	if !rec.Version.After(sf.RemoteVersion) {
		return nil // nothing newer than our last synced snapshot
	}

	if dirty {
		if reconcile.Resolve(sf.UpdatedAt, rec.Version) == reconcile.WinnerLocal {
			report.Skipped++
			d.recordPullConflict(ctx, entityType, sf.LocalID, reconcile.WinnerLocal, sf.UpdatedAt, rec.Version)
			report.Conflicts++
			return nil
		}
		d.recordPullConflict(ctx, entityType, sf.LocalID, reconcile.WinnerRemote, sf.UpdatedAt, rec.Version)
		report.Conflicts++
		// Remote wins: the queued local change is discarded with the edit.
		if err := d.db.Where("entity_type = ? AND entity_id = ?", entityType, sf.LocalID).
			Delete(&models.ChangeRecord{}).Error; err != nil {
			return fmt.Errorf("syncq: cancel change for %s %s: %w", entityType, sf.LocalID, err)
		}
	}

	if err := applyRemoteFields(ent, rec); err != nil {
		return err
	}
	sf.BackendID = rec.RemoteID
	sf.RemoteVersion = rec.Version
	sf.IsSynced = true
	sf.SyncState = models.StateSynced
	if err := d.db.Save(ent).Error; err != nil {
		return fmt.Errorf("syncq: save %s %s: %w", entityType, sf.LocalID, err)
	}
	report.Applied++
	return nil
}

// adoptRemote creates a local copy of a record first seen on the remote.
func (d *Drainer) adoptRemote(entityType string, ent Entity, rec remote.Record, report *PullReport) error {
	if err := applyRemoteFields(ent, rec); err != nil {
		return err
	}
	sf := ent.Sync()
	sf.LocalID = rec.LocalID
	if sf.LocalID == "" {
		sf.LocalID = uuid.NewString()
	}
	sf.BackendID = rec.RemoteID
	sf.RemoteVersion = rec.Version
	sf.IsSynced = true
	sf.SyncState = models.StateSynced
	if err := d.db.Create(ent).Error; err != nil {
		return fmt.Errorf("syncq: adopt %s %s: %w", entityType, rec.RemoteID, err)
	}
	report.Applied++
	return nil
}

// applyRemoteFields overwrites the entity's domain fields from the remote
// record while preserving local sync bookkeeping. Record granularity: the
// remote field set replaces the local one wholesale.
func applyRemoteFields(ent Entity, rec remote.Record) error {
	sf := ent.Sync()
	keep := *sf
	if len(rec.Fields) > 0 {
		if err := json.Unmarshal(rec.Fields, ent); err != nil {
			return fmt.Errorf("syncq: decode remote fields: %w", err)
		}
	}
	*sf = keep
	return nil
}

// recordPullConflict logs and publishes a conflict found during a pull.
func (d *Drainer) recordPullConflict(ctx context.Context, entityType, entityID, winner string, localAt, remoteAt time.Time) {
	if err := reconcile.Log(d.db, entityType, entityID, winner, localAt, remoteAt, "resolved during pull"); err != nil {
		d.logger.Printf("WARNING: %v", err)
	}
	d.events.Publish(ctx, notify.Event{
		Kind:       notify.KindConflict,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     winner + " version won",
	})
}

// checkpoint returns the pull cursor for an entity type.
func checkpoint(db *gorm.DB, entityType string) (time.Time, error) {
	var cp models.SyncCheckpoint
	err := db.Where("entity_type = ?", entityType).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("syncq: load checkpoint %s: %w", entityType, err)
	}
	return cp.PulledAt, nil
}

// saveCheckpoint advances the pull cursor for an entity type.
func saveCheckpoint(db *gorm.DB, entityType string, at time.Time) error {
	cp := models.SyncCheckpoint{EntityType: entityType, PulledAt: at}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"pulled_at"}),
	}).Create(&cp).Error
	if err != nil {
		return fmt.Errorf("syncq: save checkpoint %s: %w", entityType, err)
	}
	return nil
}
