// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package valuetree

import "fmt"

// Get resolves path against root and returns the value found there.
// It returns ok=false if any segment fails to resolve.
func Get(root *Value, path Path) (v *Value, ok bool) {
	cur := root
	for _, seg := range path.Segments {
		if cur == nil {
			return nil, false
		}
		next, found := step(cur, seg)
		if !found {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set overwrites the value at path within root, in place. The parent
// of the final segment must already exist and be a mapping; for a
// selector segment that mapping must hold the named list under the
// selector's key, and a value whose name matches no entry is appended.
// Set does not create intermediate structure.
func Set(root *Value, path Path, value *Value) error {
	if path.Empty() {
		return fmt.Errorf("valuetree: cannot Set at the root path")
	}
	parent, last, err := resolveParent(root, path)
	if err != nil {
		return err
	}
	return setAt(parent, last, value)
}

// Delete removes the value addressed by path from its parent mapping
// or named list. Deleting a path whose parent is not found is a no-op.
func Delete(root *Value, path Path) error {
	if path.Empty() {
		return fmt.Errorf("valuetree: cannot Delete the root path")
	}
	parent, last, err := resolveParent(root, path)
	if err != nil {
		return nil // parent not found: nothing to delete
	}
	return deleteAt(parent, last)
}

func resolveParent(root *Value, path Path) (*Value, Segment, error) {
	parentPath := Path{Segments: path.Segments[:len(path.Segments)-1]}
	last := path.Segments[len(path.Segments)-1]
	parent, ok := Get(root, parentPath)
	if !ok {
		return nil, Segment{}, fmt.Errorf("valuetree: path %q: parent %q not found", path, parentPath)
	}
	return parent, last, nil
}

func step(cur *Value, seg Segment) (*Value, bool) {
	if seg.IsSelector() {
		list, ok := cur.Map.Get(seg.Key)
		if !ok || list == nil || list.Kind != KindSequence {
			return nil, false
		}
		for _, item := range list.Seq {
			if n, ok := Name(item); ok && n == seg.Name {
				return item, true
			}
		}
		return nil, false
	}
	if cur.Kind != KindMapping {
		return nil, false
	}
	return cur.Map.Get(seg.Key)
}

func setAt(parent *Value, seg Segment, value *Value) error {
	if seg.IsSelector() {
		list, ok := parent.Map.Get(seg.Key)
		if !ok || list == nil || list.Kind != KindSequence {
			return fmt.Errorf("valuetree: named list %q not found", seg.Key)
		}
		for i, item := range list.Seq {
			if n, ok := Name(item); ok && n == seg.Name {
				list.Seq[i] = value
				return nil
			}
		}
		list.Seq = append(list.Seq, value)
		return nil
	}
	if parent.Kind != KindMapping {
		return fmt.Errorf("valuetree: cannot set key %q on a %s", seg.Key, parent.Kind)
	}
	parent.Map.Set(seg.Key, value)
	return nil
}

func deleteAt(parent *Value, seg Segment) error {
	if seg.IsSelector() {
		list, ok := parent.Map.Get(seg.Key)
		if !ok || list == nil || list.Kind != KindSequence {
			return nil
		}
		filtered := list.Seq[:0]
		for _, item := range list.Seq {
			if n, ok := Name(item); ok && n == seg.Name {
				continue
			}
			filtered = append(filtered, item)
		}
		list.Seq = filtered
		return nil
	}
	if parent.Kind != KindMapping {
		return nil
	}
	parent.Map.Delete(seg.Key)
	return nil
}
