// Package items keeps the current user's inventory mirror in sync with the
// document store and issues the item mutations back to it. The mirror is
// always a whole snapshot; mutations are never applied locally ahead of the
// store's confirmation.
package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/blobstore"
	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/identity"
)

// ErrValidation wraps all locally-rejected saves; nothing reaches the store.
var ErrValidation = errors.New("items: validation failed")

// ErrNotSignedIn is returned for mutations without a running subscription.
var ErrNotSignedIn = errors.New("items: not signed in")

// Syncer is the item synchronization layer. It implements session.Dependent:
// the session manager starts it with an identity and stops it on sign-out.
type Syncer struct {
	store       docstore.Store
	uploads     blobstore.Uploader
	bus         *bus.Bus
	logger      *zap.Logger
	namespace   string
	marketplace bool

	mu     sync.RWMutex
	owner  string
	mirror []Item
	sub    docstore.Subscription
	cancel context.CancelFunc
}

// NewSyncer creates an item syncer. uploads may be nil when no object store
// is configured; saves with photo bytes then fail cleanly.
func NewSyncer(store docstore.Store, uploads blobstore.Uploader, b *bus.Bus, logger *zap.Logger, namespace string, marketplace bool) *Syncer {
	return &Syncer{
		store:       store,
		uploads:     uploads,
		bus:         b,
		logger:      logger,
		namespace:   namespace,
		marketplace: marketplace,
	}
}

// Start opens the single owner-scoped live subscription. The store performs
// the scoping; no client-side owner filtering happens on snapshots.
func (s *Syncer) Start(ctx context.Context, ident identity.Identity) error {
	ctx, cancel := context.WithCancel(ctx)

	sub, err := s.store.Subscribe(ctx, docstore.Query{
		Collection: Collection,
		Equals:     &docstore.Equals{Field: "owner_id", Value: ident.UID},
		OrderBy:    "created_at",
		Descending: true,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to items: %w", err)
	}

	s.mu.Lock()
	s.owner = ident.UID
	s.mirror = nil
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	go s.pump(sub)
	return nil
}

// Stop releases the subscription and clears the mirror so the next identity
// on this device starts from nothing.
func (s *Syncer) Stop() {
	s.mu.Lock()
	sub := s.sub
	cancel := s.cancel
	s.sub = nil
	s.cancel = nil
	s.owner = ""
	s.mirror = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.publishSnapshot(0)
}

// Items returns the current mirror. The slice is replaced wholesale on every
// snapshot; callers must treat it as read-only.
func (s *Syncer) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

// Save validates the draft and issues a create or a field-restricted update.
// Creates stamp ownership and a server-assigned creation timestamp; updates
// never touch either.
func (s *Syncer) Save(ctx context.Context, d Draft) error {
	if err := s.validate(d); err != nil {
		return err
	}
	owner := s.currentOwner()
	if owner == "" {
		return ErrNotSignedIn
	}

	photoURL := d.PhotoURL
	if len(d.Photo) > 0 {
		if s.uploads == nil {
			return errors.New("items: no object store configured for photo upload")
		}
		url, err := s.uploads.Upload(ctx, blobstore.ObjectKey(s.namespace, owner), d.Photo, d.PhotoContentType)
		if err != nil {
			// The save is aborted before any document mutation; the form
			// stays open so the user can retry.
			return fmt.Errorf("photo upload: %w", err)
		}
		photoURL = url
	}

	fields := map[string]any{
		"name":      strings.TrimSpace(d.Name),
		"category":  d.Category,
		"location":  d.Location,
		"price":     d.Price,
		"notes":     d.Notes,
		"photo_url": photoURL,
		"is_listed": d.IsListed,
	}

	if d.ID == "" {
		fields["owner_id"] = owner
		fields["created_at"] = docstore.ServerTimestamp
		if _, err := s.store.Create(ctx, Collection, fields); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		return nil
	}
	if err := s.store.Update(ctx, Collection, d.ID, fields); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ToggleLend marks a lent item returned, or lends an available item to the
// named borrower. An empty or whitespace-only borrower cancels: no write.
func (s *Syncer) ToggleLend(ctx context.Context, itemID, borrower string) error {
	item, ok := s.find(itemID)
	if !ok {
		return fmt.Errorf("items: unknown item %q", itemID)
	}

	if item.Lend != nil {
		if err := s.store.Update(ctx, Collection, itemID, map[string]any{"lend": nil}); err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		return nil
	}

	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return nil
	}
	err := s.store.Update(ctx, Collection, itemID, map[string]any{
		"lend": map[string]any{
			"borrower": borrower,
			"date":     time.Now().Format("2006-01-02"),
		},
	})
	if err != nil {
		return fmt.Errorf("mark lent: %w", err)
	}
	return nil
}

// Delete permanently removes the item. The caller has already collected the
// user's explicit confirmation; there is no tombstone or undo.
func (s *Syncer) Delete(ctx context.Context, itemID string) error {
	if err := s.store.Delete(ctx, Collection, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *Syncer) validate(d Draft) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if d.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if s.marketplace && d.IsListed && d.Price <= 0 {
		return fmt.Errorf("%w: a listed item needs a positive price", ErrValidation)
	}
	return nil
}

func (s *Syncer) currentOwner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Syncer) find(itemID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.mirror {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}

// pump consumes snapshots until the subscription closes. Each snapshot fully
// replaces the mirror; there is no incremental patching.
func (s *Syncer) pump(sub docstore.Subscription) {
	for snap := range sub.Snapshots() {
		mirror := make([]Item, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			mirror = append(mirror, FromDoc(doc))
		}

		s.mu.Lock()
		if s.sub != sub { // stopped while decoding; drop the stale snapshot
			s.mu.Unlock()
			return
		}
		s.mirror = mirror
		s.mu.Unlock()

		s.publishSnapshot(len(mirror))
	}
}

func (s *Syncer) publishSnapshot(count int) {
	s.bus.Publish(bus.Event{
		Kind:      bus.KindItemsSnapshot,
		Timestamp: time.Now(),
		Payload:   count,
	})
}

// FromDoc decodes an item document into the mirror representation.
func FromDoc(d docstore.Document) Item {
	item := Item{
		ID:        d.ID,
		Name:      d.String("name"),
		Category:  d.String("category"),
		Location:  d.String("location"),
		Price:     d.Float("price"),
		Notes:     d.String("notes"),
		PhotoURL:  d.String("photo_url"),
		OwnerID:   d.String("owner_id"),
		IsListed:  d.Bool("is_listed"),
		CreatedAt: d.Int64("created_at"),
	}
	if lend := d.Map("lend"); lend != nil {
		item.Lend = &LendInfo{
			Borrower: stringField(lend, "borrower"),
			Date:     stringField(lend, "date"),
		}
	}
	return item
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
