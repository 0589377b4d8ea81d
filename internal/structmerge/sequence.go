// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package structmerge

import (
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

// mergeSequence implements §4.1's sequence merge: named-list merge by
// "name" when local or remote qualifies as a named list, else
// positional whole-sequence merge (no per-index three-way merge).
func (m *merger) mergeSequence(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	if isNamedListTriple(base, local, remote) {
		return m.mergeNamedList(path, base, local, remote)
	}
	return m.mergePositionalList(path, base, local, remote)
}

// isNamedListTriple treats the sequence as a named list if local or
// remote qualifies (base need not, e.g. a brand-new named list).
func isNamedListTriple(base, local, remote *valuetree.Value) bool {
	return valuetree.IsNamedList(local.Seq) || valuetree.IsNamedList(remote.Seq)
}

func indexByName(items []*valuetree.Value) map[string]*valuetree.Value {
	idx := make(map[string]*valuetree.Value, len(items))
	for _, item := range items {
		if n, ok := valuetree.Name(item); ok {
			idx[n] = item
		}
	}
	return idx
}

// mergeNamedList preserves local order, appends remote-only names in
// remote order, and recurses per name using the corresponding triple
// (absent entries are missing values, exactly like a mapping key that
// exists on only one side).
func (m *merger) mergeNamedList(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
	baseIdx := indexByName(valuetree.SeqOf(base))
	localIdx := indexByName(local.Seq)
	remoteIdx := indexByName(remote.Seq)

	var order []string
	seen := make(map[string]bool)
	for _, item := range local.Seq {
		n, _ := valuetree.Name(item)
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	for _, item := range remote.Seq {
		n, _ := valuetree.Name(item)
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}

	listKey, parentPath := pathKeyOf(path)
	items := make([]*valuetree.Value, 0, len(order))
	for _, name := range order {
		bv := baseIdx[name]
		lv, lok := localIdx[name]
		rv, rok := remoteIdx[name]
		childPath := parentPath.Named(listKey, name)
		var item *valuetree.Value
		switch {
		case lok && rok:
			item = m.mergeValue(childPath, bv, lv, rv)
		case lok:
			item = valuetree.Clone(lv)
			if bv != nil {
				m.conflicts = append(m.conflicts, conflict.New(childPath, bv, lv, nil))
			}
		case rok:
			item = valuetree.Clone(rv)
			if bv != nil {
				m.conflicts = append(m.conflicts, conflict.New(childPath, bv, nil, rv))
			}
		default:
			continue
		}
		if lok {
			item.Comment = lv.Comment
		} else if rok {
			item.Comment = rv.Comment
		}
		items = append(items, item)
	}
	result := valuetree.NewSequence(items)
	if local != nil {
		result.Comment = local.Comment
	}
	return result
}

// pathKeyOf splits path into the mapping key this sequence lives
// under (used to render the named-list selector "policies[name=a]")
// and the path to that sequence's parent.
func pathKeyOf(path valuetree.Path) (key string, parent valuetree.Path) {
	if len(path.Segments) == 0 {
		return "", valuetree.Root()
	}
	last := path.Segments[len(path.Segments)-1]
	return last.Key, valuetree.Path{Segments: path.Segments[:len(path.Segments)-1]}
}

// mergePositionalList implements the whole-sequence rule: no stable
// per-index key means no safe partial merge, so the sequence is
// merged as a single atomic value.
func (m *merger) mergePositionalList(path valuetree.Path, base, local, remote *valuetree.Value) *valuetree.Value {
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
