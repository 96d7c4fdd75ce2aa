package store

import (
	"time"

	"github.com/storynest/storynest/internal/domain"
)

// matchesAll evaluates filters against a document in memory. The id field is
// read from the record id, not from its fields.
func matchesAll(r domain.Record, filters []domain.Filter) bool {
	for _, f := range filters {
		var v any
		if f.Field == domain.FieldID {
			v = r.ID
		} else {
			var ok bool
			v, ok = r.Fields[f.Field]
			if !ok {
				// missing fields only satisfy "!="
				if f.Op == domain.OpNotEqual {
					continue
				}
				return false
			}
		}
		if !matches(v, f.Op, f.Value) {
			return false
		}
	}
	return true
}

func matches(have any, op domain.Operator, want any) bool {
	c, ok := compare(have, want)
	if !ok {
		return op == domain.OpNotEqual
	}
	switch op {
	case domain.OpEqual:
		return c == 0
	case domain.OpNotEqual:
		return c != 0
	case domain.OpLess:
		return c < 0
	case domain.OpLessEqual:
		return c <= 0
	case domain.OpGreater:
		return c > 0
	case domain.OpGreaterEqual:
		return c >= 0
	}
	return false
}

// compare orders two field values. ok is false when the values are not of
// comparable kinds. Bools only compare for equality.
func compare(a, b any) (int, bool) {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 1, true
	case time.Time:
		bt, ok := domain.ParseTimestamp(b)
		if !ok {
			return 0, false
		}
		return av.Compare(bt), true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
