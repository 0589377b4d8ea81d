// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package conflict

import (
	"fmt"

	"github.com/policystack/policystack/internal/valuetree"
	"gopkg.in/yaml.v3"
)

// Report is the structured document persisted to
// .policystack/upgrade/conflicts.yaml when an upgrade completes with
// unresolved conflicts, and the document exchanged with the resolver
// protocol's Resolve collaborator.
type Report struct {
	FromVersion string
	ToVersion   string
	Element     string
	Files       map[string][]*Conflict // keyed by path relative to the element root
}

func NewReport(element, fromVersion, toVersion string) *Report {
	return &Report{
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Element:     element,
		Files:       make(map[string][]*Conflict),
	}
}

// Add appends c to the conflict list for relpath.
func (r *Report) Add(relpath string, c *Conflict) {
	r.Files[relpath] = append(r.Files[relpath], c)
}

// HasUnresolved reports whether any conflict in the report is still
// Unresolved.
func (r *Report) HasUnresolved() bool {
	for _, cs := range r.Files {
		for _, c := range cs {
			if c.Resolution == Unresolved {
				return true
			}
		}
	}
	return false
}

// Count returns the total number of conflicts across all files.
func (r *Report) Count() int {
	n := 0
	for _, cs := range r.Files {
		n += len(cs)
	}
	return n
}

// UnresolvedCount returns the number of conflicts across all files
// that are still Unresolved.
func (r *Report) UnresolvedCount() int {
	n := 0
	for _, cs := range r.Files {
		for _, c := range cs {
			if c.Resolution == Unresolved {
				n++
			}
		}
	}
	return n
}

// docReport / docConflict are the wire representation: Conflict's
// Path/Value fields don't marshal directly (Path is structured,
// Value carries comments the report doesn't need), so we flatten
// through valuetree.ToGo/FromGo and Path.String/Parse.
type docReport struct {
	FromVersion string                 `yaml:"from_version"`
	ToVersion   string                 `yaml:"to_version"`
	Element     string                 `yaml:"element"`
	Files       map[string][]docEntry `yaml:"files"`
}

type docEntry struct {
	Path       string `yaml:"path"`
	Base       any    `yaml:"base,omitempty"`
	Local      any    `yaml:"local,omitempty"`
	Remote     any    `yaml:"remote,omitempty"`
	Resolution string `yaml:"resolution"`
}

// Marshal serialises the report to YAML per §6's ConflictReport
// serialisation contract.
func (r *Report) Marshal() ([]byte, error) {
	doc := docReport{
		FromVersion: r.FromVersion,
		ToVersion:   r.ToVersion,
		Element:     r.Element,
		Files:       make(map[string][]docEntry, len(r.Files)),
	}
	for relpath, cs := range r.Files {
		entries := make([]docEntry, len(cs))
		for i, c := range cs {
			entries[i] = docEntry{
				Path:       c.Path.String(),
				Base:       valuetree.ToGo(c.Base),
				Local:      valuetree.ToGo(c.Local),
				Remote:     valuetree.ToGo(c.Remote),
				Resolution: c.Resolution.String(),
			}
		}
		doc.Files[relpath] = entries
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("conflict: marshal report: %w", err)
	}
	return out, nil
}

// Unmarshal parses a report previously produced by Marshal (or
// returned by a Resolve collaborator).
func Unmarshal(data []byte) (*Report, error) {
	var doc docReport
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("conflict: unmarshal report: %w", err)
	}
	r := &Report{
		FromVersion: doc.FromVersion,
		ToVersion:   doc.ToVersion,
		Element:     doc.Element,
		Files:       make(map[string][]*Conflict, len(doc.Files)),
	}
	for relpath, entries := range doc.Files {
		cs := make([]*Conflict, len(entries))
		for i, e := range entries {
			res, err := ParseResolution(e.Resolution)
			if err != nil {
				return nil, err
			}
			c := New(valuetree.Parse(e.Path), goToValue(e.Base), goToValue(e.Local), goToValue(e.Remote))
			c.Resolution = res
			cs[i] = c
		}
		r.Files[relpath] = cs
	}
	return r, nil
}

func goToValue(i any) *valuetree.Value {
	if i == nil {
		return nil
	}
	return valuetree.FromGo(i)
}
