package domain

// Collections known to the record store.
const (
	CollectionStories  = "stories"
	CollectionUsers    = "users"
	CollectionAudios   = "audios"
	CollectionContacts = "contactMessages"
)

// Field names shared by the store adapters and the usecases.
const (
	FieldID          = "id"
	FieldUserID      = "userId"
	FieldFamilyID    = "familyId"
	FieldChildID     = "childId"
	FieldStoryID     = "storyId"
	FieldRole        = "role"
	FieldIsPublished = "isPublished"
	FieldIsFavorite  = "isFavorite"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldAudioURL    = "audioUrl"
)

// Operator is a comparison understood by every RecordStore.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Filter is one (field, operator, value) clause of a query. Clauses are ANDed.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// Record is a raw document as returned by a RecordStore: its identifier plus
// whatever fields the backend holds. Field values keep the backend's types
// until canonicalized.
type Record struct {
	ID     string
	Fields map[string]any
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

// Bool returns the field as a bool. Only a literal true counts as true.
func (r Record) Bool(field string) bool {
	b, ok := r.Fields[field].(bool)
	return ok && b
}

// Int returns the field as an int when it holds any numeric type.
func (r Record) Int(field string) int {
	switch v := r.Fields[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the field as a float64 when it holds any numeric type.
func (r Record) Float(field string) float64 {
	switch v := r.Fields[field].(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	}
	return 0
}
