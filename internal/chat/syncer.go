package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/identity"
	"github.com/docketapp/docket/internal/profiles"
)

// ErrNotSignedIn is returned for mutations without a running subscription.
var ErrNotSignedIn = errors.New("chat: not signed in")

// Syncer mirrors the thread list of the current identity and, while a thread
// view is open, that thread's message sequence. It implements
// session.Dependent; the session manager owns its lifecycle.
type Syncer struct {
	store  docstore.Store
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.RWMutex
	self    string
	threads []Thread
	sub     docstore.Subscription
	cancel  context.CancelFunc

	openID   string
	messages []Message
	msgSub   docstore.Subscription
	msgCtx   context.Context
}

func NewSyncer(store docstore.Store, b *bus.Bus, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, bus: b, logger: logger}
}

// Start opens the membership-scoped thread subscription for the identity.
func (s *Syncer) Start(ctx context.Context, ident identity.Identity) error {
	ctx, cancel := context.WithCancel(ctx)

	sub, err := s.store.Subscribe(ctx, docstore.Query{
		Collection: ThreadCollection,
		Contains:   &docstore.Contains{Field: "participants", Value: ident.UID},
		OrderBy:    "last_message_at",
		Descending: true,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to threads: %w", err)
	}

	s.mu.Lock()
	s.self = ident.UID
	s.threads = nil
	s.sub = sub
	s.cancel = cancel
	s.msgCtx = ctx
	s.mu.Unlock()

	go s.pumpThreads(ctx, sub)
	return nil
}

// Stop closes the thread view (if any) and the thread subscription, and
// clears both mirrors so the next identity starts from nothing.
func (s *Syncer) Stop() {
	s.CloseThread()

	s.mu.Lock()
	sub := s.sub
	cancel := s.cancel
	s.sub = nil
	s.cancel = nil
	s.self = ""
	s.threads = nil
	s.msgCtx = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.publish(bus.KindChatThreads, 0)
}

// Threads returns the current thread mirror, newest conversation first.
func (s *Syncer) Threads() []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threads
}

// Messages returns the mirror of the currently open thread, oldest first.
func (s *Syncer) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages
}

// OpenID reports which thread the message mirror belongs to, or "".
func (s *Syncer) OpenID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openID
}

// OpenThread switches the message subscription to the given thread. Opening
// a thread closes the previously open one; only one view exists at a time.
func (s *Syncer) OpenThread(threadID string) error {
	s.CloseThread()

	s.mu.Lock()
	ctx := s.msgCtx
	s.mu.Unlock()
	if ctx == nil {
		return ErrNotSignedIn
	}

	sub, err := s.store.Subscribe(ctx, docstore.Query{
		Collection: MessageCollection(threadID),
		OrderBy:    "sent_at",
	})
	if err != nil {
		return fmt.Errorf("subscribe to messages: %w", err)
	}

	s.mu.Lock()
	s.openID = threadID
	s.messages = nil
	s.msgSub = sub
	s.mu.Unlock()

	go s.pumpMessages(sub)
	return nil
}

// CloseThread releases the message subscription of the open thread, if any.
func (s *Syncer) CloseThread() {
	s.mu.Lock()
	sub := s.msgSub
	s.msgSub = nil
	s.openID = ""
	s.messages = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Send appends a message to the thread, then updates the thread's preview.
// The preview write is best effort: if it fails the message is already
// durable and the summary simply lags until the next send.
func (s *Syncer) Send(ctx context.Context, threadID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.RLock()
	self := s.self
	s.mu.RUnlock()
	if self == "" {
		return ErrNotSignedIn
	}

	_, err := s.store.Create(ctx, MessageCollection(threadID), map[string]any{
		"text":      text,
		"sender_id": self,
		"sent_at":   docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	err = s.store.Update(ctx, ThreadCollection, threadID, map[string]any{
		"last_message": map[string]any{
			"text":      text,
			"sender_id": self,
			"sent_at":   docstore.ServerTimestamp,
		},
		"last_message_at": docstore.ServerTimestamp,
	})
	if err != nil {
		s.logger.Warn("thread summary update failed, preview is stale",
			zap.String("thread", threadID), zap.Error(err))
	}
	return nil
}

func (s *Syncer) pumpThreads(ctx context.Context, sub docstore.Subscription) {
	for snap := range sub.Snapshots() {
		s.mu.RLock()
		self := s.self
		s.mu.RUnlock()

		threads := make([]Thread, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			th, ok := s.resolveThread(ctx, doc, self)
			if !ok {
				continue
			}
			threads = append(threads, th)
		}

		s.mu.Lock()
		if s.sub != sub {
			s.mu.Unlock()
			return
		}
		s.threads = threads
		s.mu.Unlock()

		s.publish(bus.KindChatThreads, len(threads))
	}
}

// resolveThread decodes a thread document and looks up the counterpart's
// profile. A thread whose counterpart cannot be resolved is not rendered.
func (s *Syncer) resolveThread(ctx context.Context, doc docstore.Document, self string) (Thread, bool) {
	th := Thread{
		ID:            doc.ID,
		Participants:  doc.Strings("participants"),
		LastMessageAt: doc.Int64("last_message_at"),
	}
	if lm := doc.Map("last_message"); lm != nil {
		th.LastMessage = &Summary{
			Text:     stringField(lm, "text"),
			SenderID: stringField(lm, "sender_id"),
			SentAt:   int64Field(lm, "sent_at"),
		}
	}

	other := counterpartOf(th.Participants, self)
	if other == "" {
		s.logger.Warn("thread without counterpart", zap.String("thread", doc.ID))
		return Thread{}, false
	}
	profile, err := profiles.Fetch(ctx, s.store, other)
	if err != nil {
		s.logger.Warn("counterpart profile lookup failed, hiding thread",
			zap.String("thread", doc.ID), zap.String("uid", other), zap.Error(err))
		return Thread{}, false
	}
	th.Counterpart = profile
	return th, true
}

func (s *Syncer) pumpMessages(sub docstore.Subscription) {
	for snap := range sub.Snapshots() {
		messages := make([]Message, 0, len(snap.Docs))
		for _, doc := range snap.Docs {
			messages = append(messages, Message{
				ID:       doc.ID,
				Text:     doc.String("text"),
				SenderID: doc.String("sender_id"),
				SentAt:   doc.Int64("sent_at"),
			})
		}

		s.mu.Lock()
		if s.msgSub != sub {
			s.mu.Unlock()
			return
		}
		s.messages = messages
		s.mu.Unlock()

		s.publish(bus.KindChatMessages, len(messages))
	}
}

func (s *Syncer) publish(kind string, count int) {
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: count})
}

func counterpartOf(participants []string, self string) string {
	for _, p := range participants {
		if p != self {
			return p
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func int64Field(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}
