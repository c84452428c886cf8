package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store. It backs the "memory" development backend
// and the test suites of every layer above it. Semantics mirror the remote
// store: server-stamped timestamps monotonic per writer, and every mutation
// pushes a complete snapshot to each matching subscription.
type MemStore struct {
	mu     sync.Mutex
	colls  map[string]map[string]map[string]any
	subs   map[int]*memSub
	nextID int
	lastTS int64

	// now is the server clock, overridable in tests.
	now func() int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		colls: make(map[string]map[string]map[string]any),
		subs:  make(map[int]*memSub),
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

type memSub struct {
	store *MemStore
	id    int
	query Query
	ch    chan Snapshot
	once  sync.Once
}

func (s *memSub) Snapshots() <-chan Snapshot { return s.ch }

func (s *memSub) Close() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
		close(s.ch)
	})
}

// Create implements Store.
func (m *MemStore) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	id := uuid.New().String()
	m.collection(collection)[id] = m.stamp(fields)
	m.notifyLocked(collection)
	m.mu.Unlock()
	return id, nil
}

// Set implements Store.
func (m *MemStore) Set(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	m.collection(collection)[id] = m.stamp(fields)
	m.notifyLocked(collection)
	m.mu.Unlock()
	return nil
}

// Update implements Store.
func (m *MemStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range m.stamp(fields) {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	m.notifyLocked(collection)
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collection(collection)
	if _, ok := coll[id]; !ok {
		return ErrNotFound
	}
	delete(coll, id)
	m.notifyLocked(collection)
	return nil
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.collection(collection)[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

// List implements Store.
func (m *MemStore) List(_ context.Context, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(q), nil
}

// Subscribe implements Store. The initial snapshot is buffered before return.
func (m *MemStore) Subscribe(_ context.Context, q Query) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memSub{
		store: m,
		id:    m.nextID,
		query: q,
		ch:    make(chan Snapshot, 1),
	}
	m.nextID++
	m.subs[sub.id] = sub
	sub.ch <- Snapshot{Docs: m.queryLocked(q)}
	return sub, nil
}

func (m *MemStore) collection(name string) map[string]map[string]any {
	coll, ok := m.colls[name]
	if !ok {
		coll = make(map[string]map[string]any)
		m.colls[name] = coll
	}
	return coll
}

func (m *MemStore) queryLocked(q Query) []Document {
	coll := m.collection(q.Collection)
	docs := make([]Document, 0, len(coll))
	for id, fields := range coll {
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	return q.Apply(docs)
}

// notifyLocked pushes a fresh snapshot to every subscription on the changed
// collection. Delivery coalesces: a slow consumer only ever sees the latest
// pending snapshot, never a backlog of stale ones.
func (m *MemStore) notifyLocked(collection string) {
	for _, sub := range m.subs {
		if sub.query.Collection != collection {
			continue
		}
		snap := Snapshot{Docs: m.queryLocked(sub.query)}
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

// stamp deep-copies fields, replacing ServerTimestamp markers with the
// store clock. The clock never moves backwards within one store.
func (m *MemStore) stamp(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = m.serverNowLocked()
		case map[string]any:
			out[k] = m.stamp(t)
		default:
			out[k] = v
		}
	}
	return out
}

func (m *MemStore) serverNowLocked() int64 {
	now := m.now()
	if now <= m.lastTS {
		now = m.lastTS + 1
	}
	m.lastTS = now
	return now
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneFields(nested)
			continue
		}
		out[k] = v
	}
	return out
}
