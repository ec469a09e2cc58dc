package rips

import (
	"encoding/json"

	"github.com/gyeh/ripsfix/internal/normalize"
)

// Object is a JSON object that remembers key order. Values are *Object,
// []any, string, json.Number, bool or nil.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Has reports whether key is present, including present-with-null.
func (o *Object) Has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Set stores v under key, appending the key when it is new. A repeated key
// keeps its first position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Replace overwrites an existing key and reports whether it did. Absent keys
// are left absent.
func (o *Object) Replace(key string, v any) bool {
	if _, ok := o.vals[key]; !ok {
		return false
	}
	o.vals[key] = v
	return true
}

// Scalar reads key as an optional string. ok is false when the key is absent
// or holds an object or array. JSON null maps to None; numbers and booleans
// map to their literal text.
func (o *Object) Scalar(key string) (v normalize.OptString, ok bool) {
	raw, present := o.vals[key]
	if !present {
		return normalize.None(), false
	}
	return scalar(raw)
}

func scalar(raw any) (normalize.OptString, bool) {
	switch t := raw.(type) {
	case nil:
		return normalize.None(), true
	case string:
		return normalize.Some(t), true
	case json.Number:
		return normalize.Some(t.String()), true
	case bool:
		if t {
			return normalize.Some("true"), true
		}
		return normalize.Some("false"), true
	default:
		return normalize.None(), false
	}
}

// Value converts an OptString back to a tree value: nil when absent.
func Value(v normalize.OptString) any {
	if !v.Valid {
		return nil
	}
	return v.Value
}
