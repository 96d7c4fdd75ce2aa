package utils

import (
	"bytes"
	"encoding/json"
)

// OrderedKV is a string-keyed map that remembers insertion order.
// The first Set for a key fixes both its value and its position; later calls
// are ignored unless Replace is used.
type OrderedKV[T any] struct {
	index map[string]int
	keys  []string
	vals  []T
}

func NewOrderedKV[T any](capacity int) *OrderedKV[T] {
	return &OrderedKV[T]{
		index: make(map[string]int, capacity),
		keys:  make([]string, 0, capacity),
		vals:  make([]T, 0, capacity),
	}
}

// SetIfAbsent inserts value under key unless the key is already present.
// It reports whether the value was inserted.
func (om *OrderedKV[T]) SetIfAbsent(key string, value T) bool {
	if _, ok := om.index[key]; ok {
		return false
	}
	om.index[key] = len(om.keys)
	om.keys = append(om.keys, key)
	om.vals = append(om.vals, value)
	return true
}

// Replace overwrites the value of an existing key in place, or appends it.
func (om *OrderedKV[T]) Replace(key string, value T) {
	if i, ok := om.index[key]; ok {
		om.vals[i] = value
		return
	}
	om.SetIfAbsent(key, value)
}

func (om *OrderedKV[T]) Get(key string) (T, bool) {
	i, ok := om.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return om.vals[i], true
}

func (om *OrderedKV[T]) Has(key string) bool {
	_, ok := om.index[key]
	return ok
}

func (om *OrderedKV[T]) Len() int {
	return len(om.keys)
}

// Values returns a copy of the values in insertion order.
func (om *OrderedKV[T]) Values() []T {
	out := make([]T, len(om.vals))
	copy(out, om.vals)
	return out
}

// Keys returns a copy of the keys in insertion order.
func (om *OrderedKV[T]) Keys() []string {
	out := make([]string, len(om.keys))
	copy(out, om.keys)
	return out
}

func (om *OrderedKV[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range om.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(om.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
