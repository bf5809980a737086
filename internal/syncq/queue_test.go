package syncq

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/fieldsync/internal/db"
	"github.com/zulandar/fieldsync/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

// seedClient inserts a client row directly, bypassing the store, so queue
// behavior can be tested in isolation.
func seedClient(t *testing.T, gdb *gorm.DB, state string) *models.Client {
	t.Helper()
	c := &models.Client{Company: "Acme Roofing"}
	c.LocalID = uuid.NewString()
	c.SyncState = state
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func TestEnqueue_Validation(t *testing.T) {
	gdb := openTestDB(t)

	if err := Enqueue(gdb, "widget", "x", models.OpUpsert, ""); err == nil {
		t.Error("unknown entity type accepted")
	}
	if err := Enqueue(gdb, TypeClient, "", models.OpUpsert, ""); err == nil {
		t.Error("empty entity id accepted")
	}
	if err := Enqueue(gdb, TypeClient, "x", "replace", ""); err == nil {
		t.Error("unknown op accepted")
	}
}

func TestEnqueue_CoalescesAndKeepsSeq(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateLocal)

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	var firstChange models.ChangeRecord
	if err := gdb.First(&firstChange).Error; err != nil {
		t.Fatal(err)
	}

	// Interleave another entity so a naive re-insert would get a later Seq.
	other := seedClient(t, gdb, models.StateLocal)
	if err := Enqueue(gdb, TypeClient, other.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}

	// Second mutation of the first entity coalesces.
	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}

	var changes []models.ChangeRecord
	if err := gdb.Order("seq ASC").Find(&changes).Error; err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("queue rows = %d, want 2", len(changes))
	}
	if changes[0].Seq != firstChange.Seq || changes[0].EntityID != c.LocalID {
		t.Errorf("coalesced change lost its place: %+v", changes[0])
	}
	if !changes[0].EnqueuedAt.After(firstChange.EnqueuedAt) &&
		!changes[0].EnqueuedAt.Equal(firstChange.EnqueuedAt) {
		t.Errorf("EnqueuedAt went backward")
	}
}

func TestEnqueue_CoalescingResetsRetryBookkeeping(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateLocal)

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	if err := gdb.Model(&models.ChangeRecord{}).Where("entity_id = ?", c.LocalID).
		Updates(map[string]interface{}{"attempts": heldAttempts, "last_error": "rejected"}).Error; err != nil {
		t.Fatal(err)
	}

	// A fresh local mutation revives the parked change.
	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	var change models.ChangeRecord
	if err := gdb.Where("entity_id = ?", c.LocalID).First(&change).Error; err != nil {
		t.Fatal(err)
	}
	if change.Attempts != 0 || change.LastError != "" {
		t.Errorf("attempts=%d lastError=%q, want reset", change.Attempts, change.LastError)
	}
}

func TestEnqueue_DeleteOfUnpushedCancels(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateLocal)

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpDelete, ""); err != nil {
		t.Fatal(err)
	}
	n, err := QueueDepth(gdb)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}

func TestEnqueue_DeleteOfPushedCoalescesToDelete(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateSynced)

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, "srv-1"); err != nil {
		t.Fatal(err)
	}
	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpDelete, "srv-1"); err != nil {
		t.Fatal(err)
	}
	var change models.ChangeRecord
	if err := gdb.Where("entity_id = ?", c.LocalID).First(&change).Error; err != nil {
		t.Fatal(err)
	}
	if change.Op != models.OpDelete || change.BackendID != "srv-1" {
		t.Errorf("change = %+v, want delete of srv-1", change)
	}
}

func TestEnqueue_MarksEntityDirty(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateSynced)
	if err := gdb.Model(c).Update("is_synced", true).Error; err != nil {
		t.Fatal(err)
	}

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, "srv-1"); err != nil {
		t.Fatal(err)
	}
	var got models.Client
	if err := gdb.Where("local_id = ?", c.LocalID).First(&got).Error; err != nil {
		t.Fatal(err)
	}
	if got.SyncState != models.StatePendingPush || got.IsSynced {
		t.Errorf("state = %s synced = %v, want pending_push dirty", got.SyncState, got.IsSynced)
	}
}

func TestPending_SkipsHeldChanges(t *testing.T) {
	gdb := openTestDB(t)
	a := seedClient(t, gdb, models.StateLocal)
	b := seedClient(t, gdb, models.StateLocal)

	if err := Enqueue(gdb, TypeClient, a.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	if err := Enqueue(gdb, TypeClient, b.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	if err := gdb.Model(&models.ChangeRecord{}).Where("entity_id = ?", a.LocalID).
		Update("attempts", heldAttempts).Error; err != nil {
		t.Fatal(err)
	}

	pending, err := Pending(gdb, DefaultRetryBudget)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].EntityID != b.LocalID {
		t.Errorf("pending = %+v, want only %s", pending, b.LocalID)
	}

	// Held changes still count toward depth so the dashboard can see them.
	n, err := QueueDepth(gdb)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("depth = %d, want 2", n)
	}
}

func TestComplete_KeepsReenqueuedChange(t *testing.T) {
	gdb := openTestDB(t)
	c := seedClient(t, gdb, models.StateLocal)

	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}
	var snapshot models.ChangeRecord
	if err := gdb.First(&snapshot).Error; err != nil {
		t.Fatal(err)
	}

	// The entity is mutated again while its push is in flight.
	time.Sleep(2 * time.Millisecond) // distinct EnqueuedAt
	if err := Enqueue(gdb, TypeClient, c.LocalID, models.OpUpsert, ""); err != nil {
		t.Fatal(err)
	}

	if err := complete(gdb, snapshot); err != nil {
		t.Fatal(err)
	}
	n, err := QueueDepth(gdb)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("depth = %d, want 1 (fresh change must survive)", n)
	}

	// Completing with the current snapshot removes it.
	var current models.ChangeRecord
	if err := gdb.First(&current).Error; err != nil {
		t.Fatal(err)
	}
	if err := complete(gdb, current); err != nil {
		t.Fatal(err)
	}
	if n, _ := QueueDepth(gdb); n != 0 {
		t.Errorf("depth = %d, want 0", n)
	}
}

func TestNewEntity_UnknownType(t *testing.T) {
	if _, err := NewEntity("widget"); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := TableName("widget"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestEntityTypes_ParentsBeforeChildren(t *testing.T) {
	types := EntityTypes()
	idx := make(map[string]int, len(types))
	for i, et := range types {
		idx[et] = i
	}
	pairs := [][2]string{
		{TypeClient, TypeMeasurement},
		{TypeMeasurement, TypeArea},
		{TypeBid, TypeBidLineItem},
		{TypeBid, TypeBidSignature},
		{TypeBid, TypeJob},
	}
	for _, p := range pairs {
		if idx[p[0]] >= idx[p[1]] {
			t.Errorf("%s should come before %s", p[0], p[1])
		}
	}
}
