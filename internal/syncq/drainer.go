package syncq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/zulandar/fieldsync/internal/connectivity"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/notify"
	"github.com/zulandar/fieldsync/internal/reconcile"
	"github.com/zulandar/fieldsync/internal/remote"
	"gorm.io/gorm"
)

// Default retry parameters. A change is retried with exponential backoff up
// to the budget, then parked and surfaced as a SyncStalled notification.
const (
	DefaultRetryBudget = 5
	DefaultBaseBackoff = 2 * time.Second
	DefaultMaxBackoff  = 2 * time.Minute
)

// RemoteAPI is the slice of the remote client the drainer needs. Satisfied
// by *remote.Client; tests substitute a fake.
type RemoteAPI interface {
	Create(ctx context.Context, entityType string, payload any) (*remote.PushResult, error)
	Update(ctx context.Context, entityType, remoteID string, payload any, baseVersion time.Time) (*remote.PushResult, error)
	Delete(ctx context.Context, entityType, remoteID string) error
	Pull(ctx context.Context, entityType string, since time.Time) ([]remote.Record, error)
}

// DrainConfig holds retry and backoff parameters.
type DrainConfig struct {
	RetryBudget int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Report summarizes one drain pass.
type Report struct {
	Pushed    int // creates and updates confirmed by the remote
	Deleted   int // remote deletes issued
	Conflicts int // conflicts resolved (either winner)
	Rejected  int // non-retryable remote rejections
	Stalled   int // changes that exhausted their retry budget
}

// DrainerOpts holds construction parameters for a Drainer.
type DrainerOpts struct {
	DB     *gorm.DB
	API    RemoteAPI
	Conn   *connectivity.Monitor
	Events *notify.Fanout
	Config DrainConfig
	Logger *log.Logger
}

// Drainer pushes queued changes to the service of record. It runs as a
// background task and never blocks the mutation path: the queue is the only
// shared resource, and enqueues during a drain are safe (see complete).
type Drainer struct {
	db     *gorm.DB
	api    RemoteAPI
	conn   *connectivity.Monitor
	events *notify.Fanout
	cfg    DrainConfig
	logger *log.Logger

	mu sync.Mutex // one drain pass at a time
}

// NewDrainer validates options and builds a Drainer.
func NewDrainer(opts DrainerOpts) (*Drainer, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("syncq: db is required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("syncq: remote API is required")
	}
	if opts.Conn == nil {
		return nil, fmt.Errorf("syncq: connectivity monitor is required")
	}
	if opts.Events == nil {
		opts.Events = notify.NewFanout(nil)
	}
	if opts.Config.RetryBudget <= 0 {
		opts.Config.RetryBudget = DefaultRetryBudget
	}
	if opts.Config.BaseBackoff <= 0 {
		opts.Config.BaseBackoff = DefaultBaseBackoff
	}
	if opts.Config.MaxBackoff <= 0 {
		opts.Config.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[syncq] ", log.LstdFlags)
	}
	return &Drainer{
		db:     opts.DB,
		api:    opts.API,
		conn:   opts.Conn,
		events: opts.Events,
		cfg:    opts.Config,
		logger: opts.Logger,
	}, nil
}

// Drain processes the pending queue in sequence order. It stops early when
// connectivity drops or the context is cancelled; whatever remains is
// picked up by the next pass.
func (d *Drainer) Drain(ctx context.Context) (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var report Report

	changes, err := Pending(d.db, d.cfg.RetryBudget)
	if err != nil {
		return report, err
	}

	for _, change := range changes {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !d.conn.Online() {
			d.logger.Printf("connectivity lost, stopping drain (%d changes left)", len(changes))
			return report, nil
		}
		d.processChange(ctx, change, &report)
	}
	return report, nil
}

// processChange pushes one change, retrying transient failures with
// exponential backoff until the retry budget runs out.
func (d *Drainer) processChange(ctx context.Context, change models.ChangeRecord, report *Report) {
	attempts := change.Attempts
	backoff := d.backoffFor(attempts)

	for {
		err := d.pushChange(ctx, change, report)
		if err == nil {
			if cerr := complete(d.db, change); cerr != nil {
				d.logger.Printf("WARNING: %v", cerr)
			}
			return
		}

		var rej *remote.RejectedError
		if errors.As(err, &rej) {
			// Validation rejection: surface immediately, never auto-retry.
			report.Rejected++
			if ferr := recordFailure(d.db, change, err, true); ferr != nil {
				d.logger.Printf("WARNING: %v", ferr)
			}
			d.setState(change, EventPushFail)
			d.events.Publish(ctx, notify.Event{
				Kind:       notify.KindRemoteRejected,
				EntityType: change.EntityType,
				EntityID:   change.EntityID,
				Detail:     rej.Error(),
			})
			return
		}

		// Transient failure: back off and retry within the budget.
		attempts++
		if ferr := recordFailure(d.db, change, err, false); ferr != nil {
			d.logger.Printf("WARNING: %v", ferr)
		}
		d.setState(change, EventPushFail)

		if attempts >= d.cfg.RetryBudget {
			report.Stalled++
			d.logger.Printf("change %s %s stalled after %d attempts: %v",
				change.EntityType, change.EntityID, attempts, err)
			d.events.Publish(ctx, notify.Event{
				Kind:       notify.KindSyncStalled,
				EntityType: change.EntityType,
				EntityID:   change.EntityID,
				Detail:     fmt.Sprintf("%d attempts, last error: %v", attempts, err),
			})
			return
		}

		d.logger.Printf("push %s %s failed (attempt %d/%d), retrying in %s: %v",
			change.EntityType, change.EntityID, attempts, d.cfg.RetryBudget, backoff, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > d.cfg.MaxBackoff {
			backoff = d.cfg.MaxBackoff
		}
		// Connectivity may have dropped while backing off.
		if !d.conn.Online() {
			return
		}
	}
}

// pushChange executes a single push attempt for one change record.
func (d *Drainer) pushChange(ctx context.Context, change models.ChangeRecord, report *Report) error {
	if change.Op == models.OpDelete {
		if err := d.api.Delete(ctx, change.EntityType, change.BackendID); err != nil {
			return err
		}
		report.Deleted++
		return nil
	}

	ent, err := NewEntity(change.EntityType)
	if err != nil {
		return err
	}
	err = d.db.Where("local_id = ?", change.EntityID).First(ent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted locally after enqueue. Push the delete if the record ever
		// made it to the remote; otherwise there is nothing to do.
		if change.BackendID != "" {
			if derr := d.api.Delete(ctx, change.EntityType, change.BackendID); derr != nil {
				return derr
			}
			report.Deleted++
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("syncq: load %s %s: %w", change.EntityType, change.EntityID, err)
	}

	sf := ent.Sync()
	if err := d.setStateChecked(change, sf.SyncState, EventPushStart); err != nil {
		return err
	}

	if sf.BackendID == "" {
		res, err := d.api.Create(ctx, change.EntityType, ent)
		if err != nil {
			return err
		}
		report.Pushed++
		return d.markPushed(ctx, change, res.RemoteID, res.Version)
	}

	res, err := d.api.Update(ctx, change.EntityType, sf.BackendID, ent, sf.RemoteVersion)
	if err != nil {
		var conflict *remote.ConflictError
		if errors.As(err, &conflict) {
			return d.resolveConflict(ctx, change, ent, conflict.Remote, report)
		}
		return err
	}
	report.Pushed++
	return d.markPushed(ctx, change, sf.BackendID, res.Version)
}

// resolveConflict applies last-writer-wins when the remote reports a newer
// version during a push. Remote wins exact timestamp ties.
func (d *Drainer) resolveConflict(ctx context.Context, change models.ChangeRecord, ent Entity, rec remote.Record, report *Report) error {
	sf := ent.Sync()
	d.setState(change, EventRemoteNewer)

	winner := reconcile.Resolve(sf.UpdatedAt, rec.Version)
	localAt := sf.UpdatedAt

	if winner == reconcile.WinnerLocal {
		// Re-push against the remote's current version; LWW says our edit
		// stands.
		res, err := d.api.Update(ctx, change.EntityType, sf.BackendID, ent, rec.Version)
		if err != nil {
			return err
		}
		report.Pushed++
		report.Conflicts++
		if err := d.markPushed(ctx, change, sf.BackendID, res.Version); err != nil {
			return err
		}
		d.auditConflict(ctx, change, reconcile.WinnerLocal, localAt, rec.Version)
		return nil
	}

	// Remote wins: discard the local edit wholesale and adopt the remote
	// record.
	if err := applyRemoteFields(ent, rec); err != nil {
		return err
	}
	sf.BackendID = rec.RemoteID
	sf.RemoteVersion = rec.Version
	sf.IsSynced = true
	sf.SyncState = models.StateSynced
	if err := d.db.Save(ent).Error; err != nil {
		return fmt.Errorf("syncq: apply remote %s %s: %w", change.EntityType, change.EntityID, err)
	}
	report.Conflicts++
	d.auditConflict(ctx, change, reconcile.WinnerRemote, localAt, rec.Version)
	return nil
}

// markPushed writes the remote-assigned identifier and version back onto
// the entity. If the record was mutated again while the push was in flight
// it stays pending_push; the fresh change survives in the queue.
func (d *Drainer) markPushed(ctx context.Context, change models.ChangeRecord, remoteID string, version time.Time) error {
	table, err := TableName(change.EntityType)
	if err != nil {
		return err
	}

	// A delete that landed while the push was in flight must not resurrect
	// the record: detect it and propagate the delete instead.
	var count int64
	if err := d.db.Table(table).Where("local_id = ?", change.EntityID).Count(&count).Error; err != nil {
		return fmt.Errorf("syncq: recheck %s %s: %w", change.EntityType, change.EntityID, err)
	}
	if count == 0 {
		return d.api.Delete(ctx, change.EntityType, remoteID)
	}

	var state string
	if err := d.db.Table(table).Where("local_id = ?", change.EntityID).
		Pluck("sync_state", &state).Error; err != nil {
		return fmt.Errorf("syncq: read state of %s %s: %w", change.EntityType, change.EntityID, err)
	}

	updates := map[string]interface{}{
		"backend_id":     remoteID,
		"remote_version": version,
	}
	if state == models.StateInFlight {
		next, terr := Transition(state, EventPushOK)
		if terr != nil {
			return terr
		}
		updates["sync_state"] = next
		updates["is_synced"] = true
	}
	// Otherwise a concurrent mutation already moved the record back to
	// pending_push; keep it dirty but still record the remote identifier.

	if err := d.db.Table(table).Where("local_id = ?", change.EntityID).Updates(updates).Error; err != nil {
		return fmt.Errorf("syncq: mark pushed %s %s: %w", change.EntityType, change.EntityID, err)
	}
	return nil
}

// setStateChecked validates and persists a state transition from a known
// current state.
func (d *Drainer) setStateChecked(change models.ChangeRecord, current, event string) error {
	next, err := Transition(current, event)
	if err != nil {
		return err
	}
	table, err := TableName(change.EntityType)
	if err != nil {
		return err
	}
	if err := d.db.Table(table).Where("local_id = ?", change.EntityID).
		Update("sync_state", next).Error; err != nil {
		return fmt.Errorf("syncq: set state of %s %s: %w", change.EntityType, change.EntityID, err)
	}
	return nil
}

// setState is setStateChecked reading the current state first; transition
// failures are logged, not fatal (the row may be gone).
func (d *Drainer) setState(change models.ChangeRecord, event string) {
	table, err := TableName(change.EntityType)
	if err != nil {
		d.logger.Printf("WARNING: %v", err)
		return
	}
	var state string
	if err := d.db.Table(table).Where("local_id = ?", change.EntityID).
		Pluck("sync_state", &state).Error; err != nil || state == "" {
		return
	}
	if err := d.setStateChecked(change, state, event); err != nil {
		d.logger.Printf("WARNING: %v", err)
	}
}

// auditConflict logs and publishes a resolved conflict.
func (d *Drainer) auditConflict(ctx context.Context, change models.ChangeRecord, winner string, localAt, remoteAt time.Time) {
	if err := reconcile.Log(d.db, change.EntityType, change.EntityID, winner, localAt, remoteAt, "resolved during push"); err != nil {
		d.logger.Printf("WARNING: %v", err)
	}
	d.events.Publish(ctx, notify.Event{
		Kind:       notify.KindConflict,
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Detail:     winner + " version won",
	})
}

// backoffFor returns the backoff duration after the given attempt count.
func (d *Drainer) backoffFor(attempts int) time.Duration {
	backoff := d.cfg.BaseBackoff
	for i := 0; i < attempts && backoff < d.cfg.MaxBackoff; i++ {
		backoff *= 2
	}
	if backoff > d.cfg.MaxBackoff {
		backoff = d.cfg.MaxBackoff
	}
	return backoff
}
