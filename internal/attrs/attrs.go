// Package attrs splits free-form JSON objects into typed known fields and an
// opaque remainder that is passed through unchanged.
package attrs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a decoded JSON object whose values are still raw.
type Object map[string]json.RawMessage

// Parse decodes data as a JSON object. Empty input and null yield an empty
// Object; any other non-object value is an error.
func Parse(data []byte) (Object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Object{}, nil
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = Object{}
	}
	return obj, nil
}

// Take decodes key into dst and removes it from o. A missing key or a JSON
// null leaves dst untouched.
func (o Object) Take(key string, dst any) error {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	delete(o, key)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	return nil
}

// Rest returns the keys not taken, or nil when none remain.
func (o Object) Rest() map[string]json.RawMessage {
	if len(o) == 0 {
		return nil
	}
	return map[string]json.RawMessage(o)
}

// Field is a known field to merge back with the pass-through keys.
type Field struct {
	Key   string
	Value any
	// Omit drops the field, typically when it holds its zero value.
	Omit bool
}

// Marshal encodes extra plus fields as a single JSON object with sorted keys.
// Known fields win over extra keys of the same name.
func Marshal(extra map[string]json.RawMessage, fields ...Field) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(extra)+len(fields))
	for k, v := range extra {
		out[k] = v
	}
	for _, f := range fields {
		if f.Omit {
			continue
		}
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		out[f.Key] = raw
	}
	return json.Marshal(out)
}
