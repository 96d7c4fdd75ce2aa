package store

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/storynest/storynest/internal/domain"
)

var tracer = otel.Tracer("store")

// Firestore is the RecordStore backed by Cloud Firestore collections.
type Firestore struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client, now: func() time.Time { return time.Now().UTC() }}
}

// splitIDFilter pulls an id equality out of filters. Firestore cannot filter
// on the document id as a field, so such queries become a direct read.
func splitIDFilter(filters []domain.Filter) (string, []domain.Filter, bool) {
	for i, f := range filters {
		if f.Field == domain.FieldID && f.Op == domain.OpEqual {
			id, _ := f.Value.(string)
			rest := make([]domain.Filter, 0, len(filters)-1)
			rest = append(rest, filters[:i]...)
			rest = append(rest, filters[i+1:]...)
			return id, rest, true
		}
	}
	return "", filters, false
}

func (s *Firestore) Query(ctx context.Context, collection string, filters []domain.Filter) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Firestore.Query")
	defer span.End()

	for _, f := range filters {
		if !f.Op.Valid() {
			return nil, domain.ValidationError{Field: f.Field, Reason: "unsupported operator " + string(f.Op)}
		}
	}

	if id, rest, ok := splitIDFilter(filters); ok {
		if id == "" {
			return []domain.Record{}, nil
		}
		snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return []domain.Record{}, nil
		}
		if err != nil {
			span.RecordError(err)
			return nil, classifyRPC(ctx, err, collection+"/"+id)
		}
		r := snapshotToRecord(snap)
		if !matchesAll(r, rest) {
			return []domain.Record{}, nil
		}
		return []domain.Record{r}, nil
	}

	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, string(f.Op), f.Value)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		span.RecordError(err)
		return nil, classifyRPC(ctx, err, collection)
	}

	out := make([]domain.Record, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotToRecord(snap))
	}
	return out, nil
}

func (s *Firestore) Get(ctx context.Context, collection, id string) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Firestore.Get")
	defer span.End()

	if id == "" {
		return domain.Record{}, domain.NotFoundError{Resource: collection}
	}
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Record{}, classifyRPC(ctx, err, collection+"/"+id)
	}
	return snapshotToRecord(snap), nil
}

func (s *Firestore) Create(ctx context.Context, collection string, fields map[string]any) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Firestore.Create")
	defer span.End()

	now := s.now()
	data := cloneFields(fields)
	data[domain.FieldCreatedAt] = now
	data[domain.FieldUpdatedAt] = now

	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Create(ctx, data); err != nil {
		return domain.Record{}, classifyRPC(ctx, err, collection)
	}
	return domain.Record{ID: ref.ID, Fields: data}, nil
}

func (s *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Store.Firestore.Update")
	defer span.End()

	updates := make([]firestore.Update, 0, len(fields)+1)
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{domain.FieldUpdatedAt}, Value: s.now()})

	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return classifyRPC(ctx, err, collection+"/"+id)
	}
	return nil
}

func (s *Firestore) Delete(ctx context.Context, collection, id string) error {
	ctx, span := tracer.Start(ctx, "Store.Firestore.Delete")
	defer span.End()

	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return classifyRPC(ctx, err, collection+"/"+id)
	}
	return nil
}

func snapshotToRecord(snap *firestore.DocumentSnapshot) domain.Record {
	return domain.Record{ID: snap.Ref.ID, Fields: snap.Data()}
}

// classifyRPC maps Firestore's gRPC status codes onto the domain taxonomy.
// A missing composite index surfaces as FailedPrecondition and is treated as
// unavailability so that the caller can fall back to a simpler query.
func classifyRPC(ctx context.Context, err error, resource string) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return domain.Cancelled(err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return domain.NotFoundError{Resource: resource}
	case codes.Canceled:
		return domain.Cancelled(err)
	case codes.InvalidArgument:
		return domain.ValidationError{Field: resource, Reason: status.Convert(err).Message()}
	}
	return domain.Unavailable(err)
}
