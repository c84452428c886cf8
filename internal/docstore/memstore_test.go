package docstore

import (
	"context"
	"testing"
	"time"
)

func recvSnapshot(t *testing.T, sub Subscription) Snapshot {
	t.Helper()
	select {
	case snap := <-sub.Snapshots():
		return snap
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
		return Snapshot{}
	}
}

func TestMemStoreCreateStampsServerTimestamp(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	id, err := m.Create(ctx, "items", map[string]any{
		"name":       "Drill",
		"created_at": ServerTimestamp,
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := m.Get(ctx, "items", id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Int64("created_at") == 0 {
		t.Error("created_at was not stamped by the store")
	}
	if _, ok := doc.Fields["created_at"].(serverTimestamp); ok {
		t.Error("marker value leaked into stored document")
	}
}

func TestMemStoreTimestampsMonotonic(t *testing.T) {
	m := NewMemStore()
	// Frozen clock: successive stamps must still strictly increase.
	m.now = func() int64 { return 1000 }
	ctx := context.Background()

	a, _ := m.Create(ctx, "items", map[string]any{"created_at": ServerTimestamp})
	b, _ := m.Create(ctx, "items", map[string]any{"created_at": ServerTimestamp})

	da, _ := m.Get(ctx, "items", a)
	db, _ := m.Get(ctx, "items", b)
	if db.Int64("created_at") <= da.Int64("created_at") {
		t.Errorf("timestamps not monotonic: %d then %d", da.Int64("created_at"), db.Int64("created_at"))
	}
}

func TestMemStoreUpdatePartialAndFieldRemoval(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	id, _ := m.Create(ctx, "items", map[string]any{
		"name": "Drill", "price": 120.0, "lend": map[string]any{"borrower": "Bob"},
	})

	if err := m.Update(ctx, "items", id, map[string]any{"price": 99.0, "lend": nil}); err != nil {
		t.Fatal(err)
	}

	doc, _ := m.Get(ctx, "items", id)
	if doc.String("name") != "Drill" {
		t.Error("untouched field was changed")
	}
	if doc.Float("price") != 99 {
		t.Errorf("price = %v, want 99", doc.Float("price"))
	}
	if doc.Map("lend") != nil {
		t.Error("nil value did not remove the field")
	}
}

func TestMemStoreUpdateMissing(t *testing.T) {
	m := NewMemStore()
	err := m.Update(context.Background(), "items", "nope", map[string]any{"x": 1})
	if err != ErrNotFound {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestMemStoreSubscribePushesFullSnapshots(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, Query{
		Collection: "items",
		Equals:     &Equals{Field: "owner_id", Value: "u1"},
		OrderBy:    "created_at",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	// Initial snapshot is empty but delivered immediately.
	if snap := recvSnapshot(t, sub); len(snap.Docs) != 0 {
		t.Fatalf("initial snapshot has %d docs, want 0", len(snap.Docs))
	}

	_, _ = m.Create(ctx, "items", map[string]any{"owner_id": "u1", "name": "Drill", "created_at": ServerTimestamp})
	snap := recvSnapshot(t, sub)
	if len(snap.Docs) != 1 || snap.Docs[0].String("name") != "Drill" {
		t.Fatalf("snapshot after create = %v", snap.Docs)
	}

	// A second writer's document outside the filter does not appear.
	_, _ = m.Create(ctx, "items", map[string]any{"owner_id": "u2", "name": "Ladder", "created_at": ServerTimestamp})
	snap = recvSnapshot(t, sub)
	if len(snap.Docs) != 1 {
		t.Fatalf("filter leaked: %d docs", len(snap.Docs))
	}
}

func TestMemStoreDeleteRemovesFromSnapshot(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	id, _ := m.Create(ctx, "items", map[string]any{"owner_id": "u1"})
	sub, _ := m.Subscribe(ctx, Query{Collection: "items"})
	defer sub.Close()
	recvSnapshot(t, sub)

	if err := m.Delete(ctx, "items", id); err != nil {
		t.Fatal(err)
	}
	if snap := recvSnapshot(t, sub); len(snap.Docs) != 0 {
		t.Errorf("deleted document still present: %v", snap.Docs)
	}
}

func TestMemStoreSlowConsumerSeesOnlyLatest(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	sub, _ := m.Subscribe(ctx, Query{Collection: "items"})
	defer sub.Close()

	// Don't read while three writes land.
	for i := 0; i < 3; i++ {
		_, _ = m.Create(ctx, "items", map[string]any{"n": i})
	}

	snap := recvSnapshot(t, sub)
	if len(snap.Docs) != 3 {
		t.Errorf("latest snapshot has %d docs, want 3 (coalesced)", len(snap.Docs))
	}
}

func TestMemStoreCloseIdempotent(t *testing.T) {
	m := NewMemStore()
	sub, _ := m.Subscribe(context.Background(), Query{Collection: "items"})

	sub.Close()
	sub.Close() // must not panic or double-close

	_, _ = m.Create(context.Background(), "items", map[string]any{})
	// Channel is closed; a receive yields the zero snapshot immediately.
	if snap, open := <-sub.Snapshots(); open && len(snap.Docs) != 0 {
		t.Errorf("received data after Close: %v", snap)
	}
}

func TestMemStoreSetUpsertIdempotent(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	fields := map[string]any{"username": "ana_b"}
	if err := m.Set(ctx, "profiles", "u1", fields); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx, "profiles", "u1", fields); err != nil {
		t.Fatal(err)
	}

	docs, _ := m.List(ctx, Query{Collection: "profiles"})
	if len(docs) != 1 {
		t.Errorf("Set twice produced %d docs, want 1", len(docs))
	}
}

func TestMemStoreGetReturnsCopy(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	id, _ := m.Create(ctx, "items", map[string]any{"name": "Drill"})
	doc, _ := m.Get(ctx, "items", id)
	doc.Fields["name"] = "Hacked"

	again, _ := m.Get(ctx, "items", id)
	if again.String("name") != "Drill" {
		t.Error("mutating a returned document leaked into the store")
	}
}
