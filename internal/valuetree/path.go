// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package valuetree

import (
	"fmt"
	"strings"
)

// Segment is one hop of a Path: either a plain mapping key, or a
// named-list selector (ListKey indexed by Name, rendered
// "ListKey[name=Name]").
type Segment struct {
	Key  string
	Name string // non-empty for a named-list selector
}

func (s Segment) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%s[name=%s]", s.Key, s.Name)
	}
	return s.Key
}

func (s Segment) IsSelector() bool { return s.Name != "" }

// Path is a dotted address into a Value tree, or one of the two
// file-level markers ("entire_file", "block_<i>") used by the
// templated-text merger.
type Path struct {
	Segments []Segment
}

func Root() Path { return Path{} }

// EntireFile is the whole-file conflict marker path for the
// templated-text merger.
func EntireFile() Path { return Path{Segments: []Segment{{Key: "entire_file"}}} }

// Block is the per-index conflict marker path for a templated-text
// block that could not be reconciled.
func Block(i int) Path { return Path{Segments: []Segment{{Key: fmt.Sprintf("block_%d", i)}}} }

func (p Path) Key(k string) Path {
	segs := make([]Segment, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return Path{Segments: append(segs, Segment{Key: k})}
}

func (p Path) Named(listKey, name string) Path {
	segs := make([]Segment, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return Path{Segments: append(segs, Segment{Key: listKey, Name: name})}
}

func (p Path) Empty() bool { return len(p.Segments) == 0 }

func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Parse splits a dotted path string back into Segments. Named-list
// selectors ("foo[name=bar]") are recognised; a dot inside the
// selector's brackets stays part of the name instead of splitting the
// path.
func Parse(s string) Path {
	if s == "" {
		return Root()
	}
	var segs []Segment
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		segs = append(segs, parseSegment(cur.String()))
		cur.Reset()
	}
	for _, r := range s {
		switch r {
		case '[':
			depth++
			cur.WriteRune(r)
		case ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case '.':
			if depth == 0 {
				flush()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return Path{Segments: segs}
}

func parseSegment(s string) Segment {
	open := strings.Index(s, "[name=")
	if open < 0 || !strings.HasSuffix(s, "]") {
		return Segment{Key: s}
	}
	return Segment{Key: s[:open], Name: s[open+len("[name=") : len(s)-1]}
}
