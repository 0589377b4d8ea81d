// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package conflict implements the conflict model: path-addressed
// records of (base, local, remote, optional resolution), the
// auto-resolution rule run at construction, and application of a
// resolved conflict back onto a merged tree.
package conflict

import (
	"fmt"

	"github.com/policystack/policystack/internal/valuetree"
)

// Resolution is the user-chosen or auto-derived selection between
// local/remote/custom for a single conflict.
type Resolution int

const (
	Unresolved Resolution = iota
	KeepLocal
	TakeRemote
	Custom
)

func (r Resolution) String() string {
	switch r {
	case Unresolved:
		return "unresolved"
	case KeepLocal:
		return "keep_local"
	case TakeRemote:
		return "take_remote"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "unresolved", "":
		return Unresolved, nil
	case "keep_local":
		return KeepLocal, nil
	case "take_remote":
		return TakeRemote, nil
	case "custom":
		return Custom, nil
	default:
		return Unresolved, fmt.Errorf("conflict: unknown resolution %q", s)
	}
}

// Conflict is a path-addressed record of a three-way merge
// disagreement. Base, Local, and Remote may be nil to denote absence
// (deletion) on that side.
type Conflict struct {
	Path           valuetree.Path
	Base           *valuetree.Value
	Local          *valuetree.Value
	Remote         *valuetree.Value
	Resolution     Resolution
	CustomValue    *valuetree.Value
	AutoResolvable bool
}

// New constructs a Conflict at path and immediately runs the
// auto-resolution rule from §4.4: base==remote auto-resolves to
// KeepLocal (only local changed), base==local auto-resolves to
// TakeRemote (only remote changed), and anything else - both sides
// changed, disagreeing - is left Unresolved for a human or policy to
// decide.
func New(path valuetree.Path, base, local, remote *valuetree.Value) *Conflict {
	c := &Conflict{Path: path, Base: base, Local: local, Remote: remote, Resolution: Unresolved}
	switch {
	case valuetree.Equal(base, remote) && !valuetree.Equal(local, remote):
		c.Resolution = KeepLocal
		c.AutoResolvable = true
	case valuetree.Equal(base, local) && !valuetree.Equal(remote, local):
		c.Resolution = TakeRemote
		c.AutoResolvable = true
	}
	return c
}

// Tentative returns the value this conflict's location should hold
// before any explicit resolution is applied — the "return L" rule
// from §4.1's scalar merge case.
func (c *Conflict) Tentative() *valuetree.Value {
	return c.Local
}

// Resolved returns the value this conflict's location should hold
// after Resolution is applied, and whether the location should be
// deleted instead (true when the winning side is absent).
func (c *Conflict) Resolved() (value *valuetree.Value, shouldDelete bool, err error) {
	switch c.Resolution {
	case KeepLocal:
		return c.Local, c.Local == nil, nil
	case TakeRemote:
		return c.Remote, c.Remote == nil, nil
	case Custom:
		if c.CustomValue == nil {
			return nil, false, fmt.Errorf("conflict: resolution custom at %q has no value", c.Path)
		}
		return c.CustomValue, false, nil
	case Unresolved:
		return nil, false, fmt.Errorf("conflict: %q is unresolved", c.Path)
	default:
		return nil, false, fmt.Errorf("conflict: %q has unknown resolution %d", c.Path, c.Resolution)
	}
}

// Apply writes this conflict's Resolved value into root at Path. It is
// a no-op (returning nil) for the file-level marker paths
// ("entire_file", "block_N"), which do not address a Value tree
// location — those are handled by the templated-text merger directly.
func Apply(root *valuetree.Value, c *Conflict) error {
	if isFileLevel(c.Path) {
		return nil
	}
	value, shouldDelete, err := c.Resolved()
	if err != nil {
		return err
	}
	if shouldDelete {
		return valuetree.Delete(root, c.Path)
	}
	return valuetree.Set(root, c.Path, value)
}

// ApplyAll applies every conflict in cs that is not Unresolved onto
// root, in order, and returns the subset that is still Unresolved
// (these need a collaborator's or user's decision before the document
// can be considered final). Conflicts are applied in their given order
// regardless of path nesting, so a caller passing child conflicts
// before parent conflicts (or vice versa) must ensure that ordering
// does not matter for its tree — true for every path this package
// produces, since merge conflicts never nest under one another.
func ApplyAll(root *valuetree.Value, cs []*Conflict) (remaining []*Conflict, err error) {
	for _, c := range cs {
		if c.Resolution == Unresolved {
			remaining = append(remaining, c)
			continue
		}
		if err := Apply(root, c); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

func isFileLevel(p valuetree.Path) bool {
	if len(p.Segments) != 1 {
		return false
	}
	k := p.Segments[0].Key
	if k == "entire_file" {
		return true
	}
	return len(k) > len("block_") && k[:len("block_")] == "block_"
}
