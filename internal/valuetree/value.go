// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package valuetree implements the Value Tree Model: an in-memory
// representation of a structured document (mapping, ordered sequence,
// scalar, null) that preserves mapping-key insertion order and carries
// optional comment annotations.
package valuetree

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Comment holds the comment annotations attached to a node: a leading
// block, a trailing end-of-line comment, and a trailing block.
type Comment struct {
	Head string
	Line string
	Foot string
}

func (c Comment) IsZero() bool {
	return c.Head == "" && c.Line == "" && c.Foot == ""
}

// Value is a tagged variant over the document grammar. Only the field
// matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Seq     []*Value
	Map     *Mapping
	Comment Comment
}

func NewNull() *Value                { return &Value{Kind: KindNull} }
func NewBool(b bool) *Value          { return &Value{Kind: KindBool, Bool: b} }
func NewInt(i int64) *Value          { return &Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) *Value      { return &Value{Kind: KindFloat, Float: f} }
func NewString(s string) *Value      { return &Value{Kind: KindString, Str: s} }
func NewSequence(items []*Value) *Value {
	return &Value{Kind: KindSequence, Seq: items}
}
func NewMappingValue(m *Mapping) *Value {
	if m == nil {
		m = NewMapping()
	}
	return &Value{Kind: KindMapping, Map: m}
}

// IsNil reports whether v is absent (a Go nil pointer, used to denote
// "this side has no such value at all", distinct from an explicit null).
func IsNil(v *Value) bool { return v == nil }

// IsNull reports whether v is an explicit null scalar.
func IsNull(v *Value) bool { return v != nil && v.Kind == KindNull }

// Clone deep-copies v, including comment annotations and mapping order.
func Clone(v *Value) *Value {
	if v == nil {
		return nil
	}
	out := &Value{Kind: v.Kind, Bool: v.Bool, Int: v.Int, Float: v.Float, Str: v.Str, Comment: v.Comment}
	switch v.Kind {
	case KindSequence:
		out.Seq = make([]*Value, len(v.Seq))
		for i, item := range v.Seq {
			out.Seq[i] = Clone(item)
		}
	case KindMapping:
		out.Map = NewMapping()
		for _, k := range v.Map.Keys() {
			child, _ := v.Map.Get(k)
			out.Map.Set(k, Clone(child))
		}
	}
	return out
}

// Equal reports whether a and b hold the same structural value,
// ignoring comment annotations. A nil Value denotes absence; two
// absent values are equal, an absent and a present value are not.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindSequence:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if !Equal(a.Seq[i], b.Seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if a.Map.Len() != b.Map.Len() {
			return false
		}
		for _, k := range a.Map.Keys() {
			av, _ := a.Map.Get(k)
			bv, ok := b.Map.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Name returns the string value of the mapping field "name", used to
// detect named lists. Returns "", false when v is not a mapping or the
// field is absent, null, or not a string.
func Name(v *Value) (string, bool) {
	if v == nil || v.Kind != KindMapping {
		return "", false
	}
	n, ok := v.Map.Get("name")
	if !ok || n == nil || n.Kind != KindString {
		return "", false
	}
	return n.Str, true
}

// SeqOf returns v's sequence elements, or nil if v is absent or not a
// sequence.
func SeqOf(v *Value) []*Value {
	if v == nil || v.Kind != KindSequence {
		return nil
	}
	return v.Seq
}

// IsNamedList reports whether every element of seq is a mapping
// carrying a non-null string "name" field. An empty sequence is not a
// named list (there is nothing to key on).
func IsNamedList(seq []*Value) bool {
	if len(seq) == 0 {
		return false
	}
	for _, item := range seq {
		if _, ok := Name(item); !ok {
			return false
		}
	}
	return true
}
