// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package structmerge implements the three-way merge over the Value
// Tree Model: scalar/type-mismatch rules, mapping merge with
// insertion-order preservation, and named-list/positional sequence
// merge.
package structmerge

import (
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

// merger accumulates conflicts discovered across a single Merge call.
type merger struct {
	conflicts []*conflict.Conflict
}

// Merge performs a three-way merge of base, local, and remote rooted
// at path (normally valuetree.Root() for a whole document) and
// returns the merged tree plus every conflict found, in the order
// encountered (depth-first, local-keys-first).
func Merge(path valuetree.Path, base, local, remote *valuetree.Value) (*valuetree.Value, []*conflict.Conflict) {
	m := &merger{}
	result := m.mergeTop(path, base, local, remote)
	return result, m.conflicts
}

// mergeTop handles the cases where local or remote (or both) are
// entirely absent at the document root — the recursive mergeValue
// assumes both are present, since presence-handling at a mapping key
// is the mapping merger's job, but a document itself can be missing
// on one side (e.g. a brand-new converter file).
func (m *merger) mergeTop(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	switch {
	case local == nil && remote == nil:
		return nil
	case local == nil:
		return valuetree.Clone(remote)
	case remote == nil:
		return valuetree.Clone(local)
	default:
		return m.mergeValue(path, base, local, remote)
	}
}

// mergeValue merges a node that exists on both the local and remote
// side. base may be nil (the key/node did not exist in the ancestor).
func (m *merger) mergeValue(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	if local.Kind == valuetree.KindMapping && remote.Kind == valuetree.KindMapping {
		return m.mergeMapping(path, base, local, remote)
	}
	if local.Kind == valuetree.KindSequence && remote.Kind == valuetree.KindSequence {
		return m.mergeSequence(path, base, local, remote)
	}
	return m.mergeScalar(path, base, local, remote)
}

// mergeScalar implements §4.1's scalar and type-mismatched node rule.
func (m *merger) mergeScalar(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	switch {
	case valuetree.Equal(local, remote):
		return valuetree.Clone(local)
	case valuetree.Equal(base, local) && !valuetree.Equal(base, remote):
		return valuetree.Clone(remote)
	case valuetree.Equal(base, remote) && !valuetree.Equal(base, local):
		return valuetree.Clone(local)
	default:
		m.conflicts = append(m.conflicts, conflict.New(path, base, local, remote))
		return valuetree.Clone(local)
	}
}

func baseMappingLookup(base *valuetree.Value, key string) (*valuetree.Value, bool) {
	if base == nil || base.Kind != valuetree.KindMapping {
		return nil, false
	}
	return base.Map.Get(key)
}

// mergeMapping implements §4.1's mapping merge: local keys first in
// local order, then remote-only keys in remote order.
func (m *merger) mergeMapping(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	merged := valuetree.NewMapping()

	for _, k := range local.Map.Keys() {
		lv, _ := local.Map.Get(k)
		childPath := path.Key(k)
		if rv, ok := remote.Map.Get(k); ok {
			bv, _ := baseMappingLookup(base, k)
			merged.Set(k, m.mergeValue(childPath, bv, lv, rv))
			continue
		}
		// Only in local.
		merged.Set(k, valuetree.Clone(lv))
		if bv, ok := baseMappingLookup(base, k); ok {
			m.conflicts = append(m.conflicts, conflict.New(childPath, bv, lv, nil))
		}
	}

	for _, k := range remote.Map.Keys() {
		if local.Map.Has(k) {
			continue
		}
		rv, _ := remote.Map.Get(k)
		childPath := path.Key(k)
		merged.Set(k, valuetree.Clone(rv))
		if bv, ok := baseMappingLookup(base, k); ok {
			m.conflicts = append(m.conflicts, conflict.New(childPath, bv, nil, rv))
		}
		// else: pure remote addition, silently accepted.
	}

	result := valuetree.NewMappingValue(merged)
	applyMappingComments(result, local, remote)
	return result
}

// applyMappingComments copies local's comment annotations onto the
// merged node and each of its children (matched by key), falling back
// to remote's annotations for remote-only keys.
func applyMappingComments(result, local, remote *valuetree.Value) {
	if local != nil {
		result.Comment = local.Comment
	} else if remote != nil {
		result.Comment = remote.Comment
	}
	for _, k := range result.Map.Keys() {
		child, _ := result.Map.Get(k)
		if local != nil {
			if lv, ok := local.Map.Get(k); ok {
				child.Comment = lv.Comment
				continue
			}
		}
		if remote != nil {
			if rv, ok := remote.Map.Get(k); ok {
				child.Comment = rv.Comment
			}
		}
	}
}
