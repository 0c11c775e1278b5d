package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one uploaded inventory row. Column order is preserved because
// column detection scans keys in the order the file declared them.
type Record struct {
	keys   []string
	values map[string]any
}

func NewRecord() *Record {
	return &Record{values: map[string]any{}}
}

// RecordFromMap builds a record with keys in the given order; keys missing from
// m are skipped and keys of m not listed are dropped.
func RecordFromMap(order []string, m map[string]any) *Record {
	r := NewRecord()
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	return r
}

func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Set adds or replaces a field. A replaced field keeps its position.
func (r *Record) Set(key string, v any) {
	if r.values == nil {
		r.values = map[string]any{}
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Merge copies every field of other into r, appending new columns.
func (r *Record) Merge(other *Record) {
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		r.Set(k, v)
	}
}

// Map returns the fields as an unordered map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		m[k] = r.values[k]
	}
	return m
}

func (r *Record) Clone() *Record {
	c := NewRecord()
	c.Merge(r)
	return c
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order. Any other JSON value,
// including null, decodes to an empty record.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = Record{values: map[string]any{}}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return fmt.Errorf("inventory record: invalid JSON")
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("inventory record: unexpected key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("inventory record field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err := dec.Token()
	return err
}

// DecodeRecords decodes a JSON array of objects. Non-object elements become
// empty records.
func DecodeRecords(data []byte) ([]*Record, error) {
	var out []*Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for i, r := range out {
		if r == nil {
			out[i] = NewRecord()
		}
	}
	return out, nil
}
