// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package valuetree

// ToGo converts v into a plain Go value (map[string]any, []any,
// string, int64, float64, bool, or nil) suitable for generic
// marshalling (e.g. into a conflict report). Comment annotations are
// dropped; they have no place in a diff-report document.
func ToGo(v *Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindSequence:
		out := make([]any, len(v.Seq))
		for i, item := range v.Seq {
			out[i] = ToGo(item)
		}
		return out
	case KindMapping:
		out := make(map[string]any, v.Map.Len())
		for _, k := range v.Map.Keys() {
			child, _ := v.Map.Get(k)
			out[k] = ToGo(child)
		}
		return out
	default:
		return nil
	}
}

// FromGo converts a plain Go value (as produced by a generic YAML/JSON
// decode) into a Value tree. Maps decoded as map[string]any preserve
// whatever key order that type provides; callers that need an
// insertion-ordered mapping from genuinely ordered input should use
// ParseYAML instead.
func FromGo(i any) *Value {
	switch x := i.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(x)
	case int:
		return NewInt(int64(x))
	case int64:
		return NewInt(x)
	case float64:
		if x == float64(int64(x)) {
			return NewInt(int64(x))
		}
		return NewFloat(x)
	case string:
		return NewString(x)
	case []any:
		items := make([]*Value, len(x))
		for i, item := range x {
			items[i] = FromGo(item)
		}
		return NewSequence(items)
	case map[string]any:
		m := NewMapping()
		for k, val := range x {
			m.Set(k, FromGo(val))
		}
		return NewMappingValue(m)
	default:
		return NewNull()
	}
}
