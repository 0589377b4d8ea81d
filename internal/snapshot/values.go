// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import "github.com/policystack/policystack/internal/valuetree"

// ValueChange is the old/new pair for one leaf path that differs
// between two value trees.
type ValueChange struct {
	Old *valuetree.Value
	New *valuetree.Value
}

// DetectValuesChanges walks old and new in lockstep and reports every
// leaf path whose value differs, keyed by dotted Path string. It
// reuses the structural merger's notion of equality as a pure diff:
// no conflicts are raised, every divergent leaf is simply recorded.
func DetectValuesChanges(old, newTree *valuetree.Value) map[string]ValueChange {
	changes := make(map[string]ValueChange)
	walkDiff(valuetree.Root(), old, newTree, changes)
	return changes
}

func walkDiff(path valuetree.Path, old, newVal *valuetree.Value, out map[string]ValueChange) {
	if valuetree.Equal(old, newVal) {
		return
	}
	bothMappings := old != nil && newVal != nil && old.Kind == valuetree.KindMapping && newVal.Kind == valuetree.KindMapping
	if !bothMappings {
		out[path.String()] = ValueChange{Old: old, New: newVal}
		return
	}
	seen := make(map[string]bool)
	for _, k := range old.Map.Keys() {
		seen[k] = true
		ov, _ := old.Map.Get(k)
		nv, _ := newVal.Map.Get(k)
		walkDiff(path.Key(k), ov, nv, out)
	}
	for _, k := range newVal.Map.Keys() {
		if seen[k] {
			continue
		}
		nv, _ := newVal.Map.Get(k)
		walkDiff(path.Key(k), nil, nv, out)
	}
}
