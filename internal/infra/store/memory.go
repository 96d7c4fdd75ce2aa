// Package store holds the RecordStore adapters: an in-memory store for
// development and tests, a Postgres document table, and Firestore.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storynest/storynest/internal/domain"
)

// QueryHook is consulted before every Memory query. A non-nil error is
// returned to the caller instead of results.
type QueryHook func(collection string, filters []domain.Filter) error

// Memory is a map-backed RecordStore. Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	failQuery   QueryHook
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// FailQuery installs a fault-injection hook. Pass nil to remove it.
func (m *Memory) FailQuery(hook QueryHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failQuery = hook
}

// Seed writes a document under a caller-chosen id, replacing any existing
// one. Timestamps are stored as given.
func (m *Memory) Seed(collection, id string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionLocked(collection)[id] = cloneFields(fields)
}

func (m *Memory) collectionLocked(name string) map[string]map[string]any {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]map[string]any)
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Query(ctx context.Context, collection string, filters []domain.Filter) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Cancelled(err)
	}
	for _, f := range filters {
		if !f.Op.Valid() {
			return nil, domain.ValidationError{Field: f.Field, Reason: "unsupported operator " + string(f.Op)}
		}
	}

	m.mu.RLock()
	hook := m.failQuery
	m.mu.RUnlock()
	if hook != nil {
		if err := hook(collection, filters); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Record, 0)
	for _, id := range ids {
		r := domain.Record{ID: id, Fields: docs[id]}
		if matchesAll(r, filters) {
			out = append(out, domain.Record{ID: id, Fields: cloneFields(docs[id])})
		}
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, domain.Cancelled(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return domain.Record{}, domain.NotFoundError{Resource: collection + "/" + id}
	}
	return domain.Record{ID: id, Fields: cloneFields(doc)}, nil
}

func (m *Memory) Create(ctx context.Context, collection string, fields map[string]any) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, domain.Cancelled(err)
	}
	doc := cloneFields(fields)
	now := m.now()
	doc[domain.FieldCreatedAt] = now
	doc[domain.FieldUpdatedAt] = now

	id := uuid.NewString()
	m.mu.Lock()
	m.collectionLocked(collection)[id] = doc
	m.mu.Unlock()
	return domain.Record{ID: id, Fields: cloneFields(doc)}, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return domain.Cancelled(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return domain.NotFoundError{Resource: collection + "/" + id}
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc[domain.FieldUpdatedAt] = m.now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return domain.Cancelled(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return domain.NotFoundError{Resource: collection + "/" + id}
	}
	delete(m.collections[collection], id)
	return nil
}
