package items

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/identity"
)

func newSyncer(t *testing.T, store docstore.Store, marketplace bool) *Syncer {
	t.Helper()
	s := NewSyncer(store, nil, bus.New(), zap.NewNop(), "docket", marketplace)
	t.Cleanup(s.Stop)
	return s
}

func start(t *testing.T, s *Syncer, uid string) {
	t.Helper()
	if err := s.Start(context.Background(), identity.Identity{UID: uid}); err != nil {
		t.Fatal(err)
	}
}

// waitForMirror polls until the mirror holds want items.
func waitForMirror(t *testing.T, s *Syncer, want int) []Item {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if items := s.Items(); len(items) == want {
			return items
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mirror never reached %d items (have %d)", want, len(s.Items()))
	return nil
}

func TestSaveCreateStampsOwnershipAndServerTime(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")

	if err := s.Save(context.Background(), Draft{Name: "Drill", Price: 120}); err != nil {
		t.Fatal(err)
	}

	items := waitForMirror(t, s, 1)
	if items[0].OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want u1", items[0].OwnerID)
	}
	if items[0].CreatedAt == 0 {
		t.Error("CreatedAt not server-assigned")
	}
	if items[0].Name != "Drill" || items[0].Price != 120 {
		t.Errorf("item = %+v", items[0])
	}
}

func TestSaveRejectsLocally(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, true)
	start(t, s, "u1")
	ctx := context.Background()

	cases := []Draft{
		{Name: ""},
		{Name: "   "},
		{Name: "Drill", Price: -1},
		{Name: "Drill", IsListed: true, Price: 0}, // marketplace: listed needs positive price
	}
	for _, d := range cases {
		err := s.Save(ctx, d)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Save(%+v) = %v, want ErrValidation", d, err)
		}
	}

	// Nothing reached the store.
	docs, _ := store.List(ctx, docstore.Query{Collection: Collection})
	if len(docs) != 0 {
		t.Errorf("%d documents written despite rejection", len(docs))
	}
}

func TestListedItemAllowedOutsideMarketplace(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")

	if err := s.Save(context.Background(), Draft{Name: "Drill", IsListed: true, Price: 0}); err != nil {
		t.Errorf("Save() = %v, want nil without marketplace", err)
	}
}

func TestSaveUpdatePreservesOwnershipAndCreation(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Drill", Price: 120}); err != nil {
		t.Fatal(err)
	}
	created := waitForMirror(t, s, 1)[0]

	if err := s.Save(ctx, Draft{ID: created.ID, Name: "Hammer Drill", Price: 150}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		items := s.Items()
		if len(items) == 1 && items[0].Name == "Hammer Drill" {
			if items[0].OwnerID != created.OwnerID {
				t.Error("update rewrote ownership")
			}
			if items[0].CreatedAt != created.CreatedAt {
				t.Error("update rewrote creation timestamp")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("updated item never arrived in mirror")
}

func TestToggleLendAndReturn(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Ladder"}); err != nil {
		t.Fatal(err)
	}
	id := waitForMirror(t, s, 1)[0].ID

	if err := s.ToggleLend(ctx, id, "  Bob  "); err != nil {
		t.Fatal(err)
	}
	var lent Item
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if items := s.Items(); len(items) == 1 && items[0].Lend != nil {
			lent = items[0]
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if lent.Lend == nil {
		t.Fatal("item never became lent")
	}
	if lent.Lend.Borrower != "Bob" {
		t.Errorf("borrower = %q, want trimmed Bob", lent.Lend.Borrower)
	}
	if lent.Lend.Date == "" {
		t.Error("lend date not set")
	}

	// Toggling a lent item marks it returned.
	if err := s.ToggleLend(ctx, id, ""); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if items := s.Items(); len(items) == 1 && items[0].Lend == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("item never became available again")
}

func TestLendBlankBorrowerIsNoOp(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Drill"}); err != nil {
		t.Fatal(err)
	}
	id := waitForMirror(t, s, 1)[0].ID

	for _, borrower := range []string{"", "   "} {
		if err := s.ToggleLend(ctx, id, borrower); err != nil {
			t.Fatalf("ToggleLend(%q) = %v, want nil no-op", borrower, err)
		}
	}

	doc, _ := store.Get(ctx, Collection, id)
	if doc.Map("lend") != nil {
		t.Error("blank borrower wrote a lend field")
	}
}

func TestDeleteRemovesFromMirrorPermanently(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Drill"}); err != nil {
		t.Fatal(err)
	}
	id := waitForMirror(t, s, 1)[0].ID

	if err := s.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	waitForMirror(t, s, 0)

	if _, err := store.Get(ctx, Collection, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Error("document survived delete")
	}
}

func TestStoreScopedToOwner(t *testing.T) {
	store := docstore.NewMemStore()
	ctx := context.Background()

	// Another user's item exists before we subscribe.
	_, _ = store.Create(ctx, Collection, map[string]any{
		"owner_id": "other", "name": "Their Drill", "created_at": docstore.ServerTimestamp,
	})

	s := newSyncer(t, store, false)
	start(t, s, "u1")

	if err := s.Save(ctx, Draft{Name: "My Drill"}); err != nil {
		t.Fatal(err)
	}
	items := waitForMirror(t, s, 1)
	if items[0].Name != "My Drill" {
		t.Errorf("mirror leaked another owner's item: %+v", items)
	}
}

func TestStopClearsMirrorForNextIdentity(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Drill"}); err != nil {
		t.Fatal(err)
	}
	waitForMirror(t, s, 1)

	s.Stop()
	if len(s.Items()) != 0 {
		t.Fatal("mirror survived Stop")
	}

	// A different identity must not observe the previous user's items.
	start(t, s, "u2")
	time.Sleep(50 * time.Millisecond)
	if items := s.Items(); len(items) != 0 {
		t.Errorf("second identity sees %d foreign items", len(items))
	}
}

func TestSnapshotIdempotence(t *testing.T) {
	store := docstore.NewMemStore()
	s := newSyncer(t, store, false)
	start(t, s, "u1")
	ctx := context.Background()

	if err := s.Save(ctx, Draft{Name: "Drill", Price: 120}); err != nil {
		t.Fatal(err)
	}
	waitForMirror(t, s, 1)

	// A no-op write re-pushes an identical snapshot; the mirror must not
	// accumulate duplicates or stale residue.
	id := s.Items()[0].ID
	if err := store.Update(ctx, Collection, id, map[string]any{"price": 120.0}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	items := waitForMirror(t, s, 1)
	if items[0].Price != 120 {
		t.Errorf("item = %+v", items[0])
	}
}

// failingUploader always fails, standing in for an unreachable object store.
type failingUploader struct{}

func (failingUploader) Upload(context.Context, string, []byte, string) (string, error) {
	return "", fmt.Errorf("object store unreachable")
}

func TestUploadFailureAbortsSave(t *testing.T) {
	store := docstore.NewMemStore()
	s := NewSyncer(store, failingUploader{}, bus.New(), zap.NewNop(), "docket", false)
	t.Cleanup(s.Stop)
	start(t, s, "u1")
	ctx := context.Background()

	err := s.Save(ctx, Draft{Name: "Drill", Photo: []byte{1, 2, 3}, PhotoContentType: "image/jpeg"})
	if err == nil {
		t.Fatal("Save() succeeded despite upload failure")
	}

	docs, _ := store.List(ctx, docstore.Query{Collection: Collection})
	if len(docs) != 0 {
		t.Error("document was written despite aborted upload")
	}
}
