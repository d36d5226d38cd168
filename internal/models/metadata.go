package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindList   ValueKind = "list"
	KindMap    ValueKind = "map"
)

// Value is a metadata value: string | number | bool | list | map.
// The zero Value is invalid; build values with the constructors.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// Metadata is the open key/value container attached to rows.
type Metadata map[string]Value

func String(s string) Value        { return Value{kind: KindString, str: s} }
func Number(n float64) Value       { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func List(vs ...Value) Value       { return Value{kind: KindList, list: vs} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// Kind returns the variant tag; empty for the zero Value.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Str() (string, bool)               { return v.str, v.kind == KindString }
func (v Value) Num() (float64, bool)              { return v.num, v.kind == KindNumber }
func (v Value) Boolean() (bool, bool)             { return v.b, v.kind == KindBool }
func (v Value) Items() ([]Value, bool)            { return v.list, v.kind == KindList }
func (v Value) Fields() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return Metadata(v.m).Equal(Metadata(o.m))
	}
	return true
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	}
	return nil, fmt.Errorf("metadata value has no kind")
}

// UnmarshalJSON decodes plain JSON. null is rejected: metadata has no null variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty metadata value")
	}
	switch data[0] {
	case 'n':
		return fmt.Errorf("metadata values cannot be null")
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Value{}
		}
		*v = List(items...)
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if m == nil {
			m = map[string]Value{}
		}
		*v = Map(m)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
	}
	return nil
}

// FromAny converts a decoded JSON/YAML tree into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = item
		}
		return Map(m), nil
	case nil:
		return Value{}, fmt.Errorf("metadata values cannot be null")
	}
	return Value{}, fmt.Errorf("unsupported metadata value of type %T", x)
}

// MetadataFromAny converts a decoded map into Metadata.
func MetadataFromAny(m map[string]any) (Metadata, error) {
	out := make(Metadata, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Validate checks every value in the tree carries a kind.
func (m Metadata) Validate() error {
	for _, k := range m.Keys() {
		if k == "" {
			return fmt.Errorf("metadata keys cannot be empty")
		}
		if err := m[k].validate(k); err != nil {
			return err
		}
	}
	return nil
}

func (v Value) validate(path string) error {
	switch v.kind {
	case KindString, KindNumber, KindBool:
		return nil
	case KindList:
		for i, item := range v.list {
			if err := item.validate(fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		return Metadata(v.m).validateAt(path)
	}
	return fmt.Errorf("metadata %q has no value", path)
}

func (m Metadata) validateAt(path string) error {
	for _, k := range m.Keys() {
		if err := m[k].validate(path + "." + k); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both maps hold equal values under the same keys.
func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Merge returns a copy of m with the keys of patch applied on top.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Encode serializes metadata for storage. A nil map is stored as {}.
func (m Metadata) Encode() (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]Value(m))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMetadata parses stored metadata.
func DecodeMetadata(s string) (Metadata, error) {
	if s == "" {
		return Metadata{}, nil
	}
	var m map[string]Value
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]Value{}
	}
	return Metadata(m), nil
}
