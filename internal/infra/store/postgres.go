package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/infra/database/models"
)

// Postgres keeps every collection in one documents table with the fields in
// a jsonb column.
type Postgres struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type condition struct {
	SQL  string
	Args []any
}

var sqlOperators = map[domain.Operator]string{
	domain.OpEqual:        "=",
	domain.OpNotEqual:     "<>",
	domain.OpLess:         "<",
	domain.OpLessEqual:    "<=",
	domain.OpGreater:      ">",
	domain.OpGreaterEqual: ">=",
}

// buildConditions compiles filters to jsonb comparisons. The field name is
// bound as a parameter; the cast follows the Go type of the value.
func buildConditions(filters []domain.Filter) ([]condition, error) {
	out := make([]condition, 0, len(filters))
	for _, f := range filters {
		op, ok := sqlOperators[f.Op]
		if !ok {
			return nil, domain.ValidationError{Field: f.Field, Reason: "unsupported operator " + string(f.Op)}
		}
		if f.Field == "" {
			return nil, domain.ValidationError{Field: "field", Reason: "must not be empty"}
		}
		if f.Field == domain.FieldID {
			out = append(out, condition{SQL: "id " + op + " ?", Args: []any{fmt.Sprint(f.Value)}})
			continue
		}

		var lhs string
		value := f.Value
		switch v := f.Value.(type) {
		case nil:
			switch f.Op {
			case domain.OpEqual:
				out = append(out, condition{SQL: "data->>? IS NULL", Args: []any{f.Field}})
			case domain.OpNotEqual:
				out = append(out, condition{SQL: "data->>? IS NOT NULL", Args: []any{f.Field}})
			default:
				return nil, domain.ValidationError{Field: f.Field, Reason: "null only supports == and !="}
			}
			continue
		case bool:
			lhs = "(data->>?)::boolean"
		case int, int32, int64, float32, float64:
			lhs = "(data->>?)::numeric"
		case time.Time:
			lhs = "(data->>?)::timestamptz"
			value = v.UTC()
		case string:
			lhs = "data->>?"
		default:
			return nil, domain.ValidationError{Field: f.Field, Reason: fmt.Sprintf("unsupported value type %T", f.Value)}
		}
		out = append(out, condition{SQL: lhs + " " + op + " ?", Args: []any{f.Field, value}})
	}
	return out, nil
}

func (p *Postgres) Query(ctx context.Context, collection string, filters []domain.Filter) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Postgres.Query")
	defer span.End()

	conds, err := buildConditions(filters)
	if err != nil {
		return nil, err
	}

	tx := p.db.WithContext(ctx).Model(&models.Document{}).Where("collection = ?", collection)
	for _, c := range conds {
		tx = tx.Where(c.SQL, c.Args...)
	}

	var docs []models.Document
	if err := tx.Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, classifySQL(ctx, err, collection)
	}

	out := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		r, err := documentToRecord(d)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Postgres.Get")
	defer span.End()

	var doc models.Document
	err := p.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		return domain.Record{}, classifySQL(ctx, err, collection+"/"+id)
	}
	return documentToRecord(doc)
}

func (p *Postgres) Create(ctx context.Context, collection string, fields map[string]any) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Store.Postgres.Create")
	defer span.End()

	now := p.now()
	data := cloneFields(fields)
	data[domain.FieldCreatedAt] = now
	data[domain.FieldUpdatedAt] = now

	raw, err := json.Marshal(data)
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "encode document")
	}
	doc := models.Document{
		Collection: collection,
		ID:         uuid.NewString(),
		Data:       string(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return domain.Record{}, classifySQL(ctx, err, collection)
	}
	return documentToRecord(doc)
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Store.Postgres.Update")
	defer span.End()

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			First(&doc).Error; err != nil {
			return err
		}

		data := map[string]any{}
		if err := json.Unmarshal([]byte(doc.Data), &data); err != nil {
			return errors.Wrap(err, "decode document")
		}
		for k, v := range fields {
			data[k] = v
		}
		now := p.now()
		data[domain.FieldUpdatedAt] = now

		raw, err := json.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "encode document")
		}
		return tx.Model(&models.Document{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": string(raw), "updated_at": now}).Error
	})
	if err != nil {
		return classifySQL(ctx, err, collection+"/"+id)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	ctx, span := tracer.Start(ctx, "Store.Postgres.Delete")
	defer span.End()

	res := p.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&models.Document{})
	if res.Error != nil {
		return classifySQL(ctx, res.Error, collection+"/"+id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: collection + "/" + id}
	}
	return nil
}

func documentToRecord(d models.Document) (domain.Record, error) {
	fields := map[string]any{}
	if d.Data != "" {
		if err := json.Unmarshal([]byte(d.Data), &fields); err != nil {
			return domain.Record{}, errors.Wrapf(err, "decode document %s/%s", d.Collection, d.ID)
		}
	}
	if _, ok := fields[domain.FieldCreatedAt]; !ok && !d.CreatedAt.IsZero() {
		fields[domain.FieldCreatedAt] = d.CreatedAt
	}
	if _, ok := fields[domain.FieldUpdatedAt]; !ok && !d.UpdatedAt.IsZero() {
		fields[domain.FieldUpdatedAt] = d.UpdatedAt
	}
	return domain.Record{ID: d.ID, Fields: fields}, nil
}

func classifySQL(ctx context.Context, err error, resource string) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return domain.Cancelled(err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundError{Resource: resource}
	}
	var verr domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return domain.Unavailable(errors.Wrapf(err, "postgres %s", resource))
}
