// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package valuetree

import "github.com/emirpasic/gods/maps/linkedhashmap"

// Mapping is an ordered mapping from string keys to *Value. Insertion
// order is preserved across Set/Delete, which is the invariant the
// structured merger relies on to reproduce local key order.
type Mapping struct {
	m *linkedhashmap.Map
}

func NewMapping() *Mapping {
	return &Mapping{m: linkedhashmap.New()}
}

func (m *Mapping) Get(key string) (*Value, bool) {
	raw, found := m.m.Get(key)
	if !found {
		return nil, false
	}
	return raw.(*Value), true
}

// Set inserts key with value, or updates value in place if key already
// exists. A pre-existing key keeps its position; a new key is appended.
func (m *Mapping) Set(key string, value *Value) {
	m.m.Put(key, value)
}

func (m *Mapping) Delete(key string) {
	m.m.Remove(key)
}

func (m *Mapping) Has(key string) bool {
	_, found := m.m.Get(key)
	return found
}

// Keys returns the mapping's keys in insertion order.
func (m *Mapping) Keys() []string {
	raw := m.m.Keys()
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = k.(string)
	}
	return keys
}

func (m *Mapping) Len() int {
	return m.m.Size()
}
