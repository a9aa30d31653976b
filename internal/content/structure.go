// SPDX-License-Identifier: Apache-2.0

package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Kind tags the variant held by a Structure.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Structure
}

// Structure is a recognized value tree. Only the field matching Kind is set.
type Structure struct {
	Kind    Kind
	Members []Member
	Items   []Structure
	// Scalar holds string, bool, nil, int64, float64 or json.Number.
	Scalar any
}

// NewScalar wraps v as a scalar.
func NewScalar(v any) Structure {
	return Structure{Kind: KindScalar, Scalar: v}
}

// NewArray builds an array from items.
func NewArray(items ...Structure) Structure {
	if items == nil {
		items = []Structure{}
	}
	return Structure{Kind: KindArray, Items: items}
}

// NewObject builds an object from members in the given order.
// A repeated key overwrites the earlier value in place.
func NewObject(members ...Member) Structure {
	var b ObjectBuilder
	for _, m := range members {
		b.Set(m.Key, m.Value)
	}
	return b.Structure()
}

// ObjectBuilder accumulates object members in insertion order.
// A repeated key overwrites the earlier value in place.
type ObjectBuilder struct {
	members []Member
	index   map[string]int
}

// Set adds or replaces key.
func (b *ObjectBuilder) Set(key string, value Structure) {
	if i, ok := b.index[key]; ok {
		b.members[i].Value = value
		return
	}
	if b.index == nil {
		b.index = make(map[string]int)
	}
	b.index[key] = len(b.members)
	b.members = append(b.members, Member{Key: key, Value: value})
}

// Structure returns the built object.
func (b *ObjectBuilder) Structure() Structure {
	members := b.members
	if members == nil {
		members = []Member{}
	}
	return Structure{Kind: KindObject, Members: members}
}

// Set adds or replaces key on an object.
func (s *Structure) Set(key string, value Structure) {
	for i := range s.Members {
		if s.Members[i].Key == key {
			s.Members[i].Value = value
			return
		}
	}
	s.Members = append(s.Members, Member{Key: key, Value: value})
}

// Get returns the value stored under key on an object.
func (s Structure) Get(key string) (Structure, bool) {
	for _, m := range s.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Structure{}, false
}

// Len returns the number of members or items; scalars have length 0.
func (s Structure) Len() int {
	switch s.Kind {
	case KindObject:
		return len(s.Members)
	case KindArray:
		return len(s.Items)
	}
	return 0
}

// Populated reports a non-empty object or array. Scalars never count as
// recognized structure.
func (s Structure) Populated() bool {
	return s.Kind != KindScalar && s.Len() > 0
}

// Interface converts s into plain Go values: map[string]any, []any and scalars.
// Member order is lost.
func (s Structure) Interface() any {
	switch s.Kind {
	case KindObject:
		out := make(map[string]any, len(s.Members))
		for _, m := range s.Members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	case KindArray:
		out := make([]any, len(s.Items))
		for i, item := range s.Items {
			out[i] = item.Interface()
		}
		return out
	}
	return s.Scalar
}

// MarshalJSON encodes s keeping object member order.
func (s Structure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s Structure) writeJSON(buf *bytes.Buffer) error {
	switch s.Kind {
	case KindObject:
		buf.WriteByte('{')
		for i, m := range s.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range s.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		raw, err := json.Marshal(s.Scalar)
		if err != nil {
			return fmt.Errorf("marshal scalar %T: %w", s.Scalar, err)
		}
		buf.Write(raw)
	}
	return nil
}

// FromValue converts a generic decoded value (as produced by YAML or JSON
// decoders) into a Structure. Map keys are stringified with fmt and sorted.
func FromValue(v any) Structure {
	switch val := v.(type) {
	case Structure:
		return val
	case map[string]any:
		var b ObjectBuilder
		for _, k := range slices.Sorted(maps.Keys(val)) {
			b.Set(k, FromValue(val[k]))
		}
		return b.Structure()
	case map[any]any:
		keyed := make(map[string]any, len(val))
		for k, item := range val {
			keyed[fmt.Sprint(k)] = item
		}
		return FromValue(keyed)
	case []any:
		items := make([]Structure, len(val))
		for i, item := range val {
			items[i] = FromValue(item)
		}
		return NewArray(items...)
	}
	return NewScalar(v)
}
