// Package fieldmap provides an insertion-ordered mapping from string keys
// to string values. It backs extracted document fields and submitted form
// data, where every value is a string and key order is preserved across
// JSON encoding.
package fieldmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrNonString is returned when decoding JSON whose values are not strings.
var ErrNonString = errors.New("field values must be strings")

// Map is an ordered string-to-string mapping. The zero value is an empty
// map ready to use.
type Map struct {
	keys   []string
	values map[string]string
}

// Pair is a single key/value entry in a Map.
type Pair struct {
	Key   string
	Value string
}

// New creates a Map from pairs, keeping their order. A repeated key
// overwrites the earlier value without changing its position.
func New(pairs ...Pair) Map {
	var m Map
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set assigns value to key, appending key if it is new.
func (m *Map) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (m Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value for key, or the empty string when absent.
func (m Map) Value(key string) string {
	return m.values[key]
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (m Map) Keys() []string {
	return slices.Clone(m.keys)
}

// Pairs returns the entries in insertion order.
func (m Map) Pairs() []Pair {
	pairs := make([]Pair, len(m.keys))
	for i, k := range m.keys {
		pairs[i] = Pair{Key: k, Value: m.values[k]}
	}
	return pairs
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy of m.
func (m Map) Clone() Map {
	return New(m.Pairs()...)
}

// Equal reports whether m and other hold the same entries in the same order.
func (m Map) Equal(other Map) bool {
	return slices.Equal(m.Pairs(), other.Pairs())
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order as written.
// A JSON null decodes to an empty map. Non-string values are rejected
// with ErrNonString.
func (m *Map) UnmarshalJSON(data []byte) error {
	*m = Map{}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fieldmap: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fieldmap: expected key, got %v", tok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: key %q", ErrNonString, key)
		}
		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}
