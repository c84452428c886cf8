// Package redisdoc implements the document store contract on Redis. Documents
// are JSON values, collection membership is a set, and every mutation
// publishes the collection name on a pub/sub channel; subscribers re-query
// and push the complete result set, so consumers always observe a whole
// snapshot and never a partial merge.
package redisdoc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/docstore"
)

// Store is a redis-backed docstore.Store. All keys are prefixed with the
// configured namespace to keep application instances from colliding on a
// shared server.
type Store struct {
	rdb       *redis.Client
	namespace string
	logger    *zap.Logger

	mu     sync.Mutex
	lastTS int64
}

// New connects to redis and verifies the connection.
func New(addr, password string, db int, namespace string, logger *zap.Logger) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{rdb: rdb, namespace: namespace, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) docKey(collection, id string) string {
	return fmt.Sprintf("%s:doc:%s:%s", s.namespace, collection, id)
}

func (s *Store) idsKey(collection string) string {
	return fmt.Sprintf("%s:ids:%s", s.namespace, collection)
}

func (s *Store) changeChannel(collection string) string {
	return fmt.Sprintf("%s:changes:%s", s.namespace, collection)
}

// Create implements docstore.Store.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	if err := s.write(ctx, collection, id, s.stamp(fields)); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.write(ctx, collection, id, s.stamp(fields))
}

// Update implements docstore.Store. The read-merge-write is not atomic
// across clients; the store's last-write-wins semantics resolve races.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	current, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range s.stamp(fields) {
		if v == nil {
			delete(current.Fields, k)
			continue
		}
		current.Fields[k] = v
	}
	return s.write(ctx, collection, id, current.Fields)
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.docKey(collection, id))
	pipe.SRem(ctx, s.idsKey(collection), id)
	pipe.Publish(ctx, s.changeChannel(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	raw, err := s.rdb.Get(ctx, s.docKey(collection, id)).Result()
	if err == redis.Nil {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	ids, err := s.rdb.SMembers(ctx, s.idsKey(q.Collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list collection ids: %w", err)
	}
	if len(ids) == 0 {
		return []docstore.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(q.Collection, id)
	}
	raws, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]docstore.Document, 0, len(ids))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// Membership and value can momentarily disagree during a
			// concurrent delete; skip the gap.
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(str), &fields); err != nil {
			s.logger.Warn("skipping undecodable document",
				zap.String("collection", q.Collection), zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		docs = append(docs, docstore.Document{ID: ids[i], Fields: fields})
	}
	return q.Apply(docs), nil
}

// Subscribe implements docstore.Store. A goroutine re-queries the collection
// on every published change and pushes the full result set; pushes coalesce
// so a slow consumer only ever sees the latest snapshot.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, s.changeChannel(q.Collection))
	// Force the subscription to be established before the initial query so
	// no change can slip between the two.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", q.Collection, err)
	}

	sub := &subscription{
		ch:     make(chan docstore.Snapshot, 1),
		pubsub: pubsub,
	}

	go s.pump(ctx, q, sub)
	return sub, nil
}

// pump is the sole sender on sub.ch and closes it on exit, which happens
// when the pubsub is closed (via Close) or the context ends.
func (s *Store) pump(ctx context.Context, q docstore.Query, sub *subscription) {
	defer close(sub.ch)

	push := func() {
		docs, err := s.List(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("snapshot query failed", zap.String("collection", q.Collection), zap.Error(err))
			}
			return
		}
		snap := docstore.Snapshot{Docs: docs}
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

	push()

	msgs := sub.pubsub.Channel()
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
			push()
		case <-ctx.Done():
			sub.Close()
			return
		}
	}
}

type subscription struct {
	ch     chan docstore.Snapshot
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *subscription) Snapshots() <-chan docstore.Snapshot { return s.ch }

func (s *subscription) Close() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
}

func (s *Store) write(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.docKey(collection, id), raw, 0)
	pipe.SAdd(ctx, s.idsKey(collection), id)
	pipe.Publish(ctx, s.changeChannel(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// stamp deep-copies fields, replacing ServerTimestamp markers with this
// client's clock, strictly increasing across stamps. True server-side
// stamping would need a Lua script; millisecond client clocks plus the
// monotonic guard satisfy the per-writer monotonicity the app relies on.
func (s *Store) stamp(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case map[string]any:
			out[k] = s.stamp(t)
		default:
			if v == docstore.ServerTimestamp {
				out[k] = s.nextTS()
				continue
			}
			out[k] = t
		}
	}
	return out
}

func (s *Store) nextTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.lastTS {
		now = s.lastTS + 1
	}
	s.lastTS = now
	return now
}
