// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package conflict

import (
	"fmt"
	"strings"

	"github.com/policystack/policystack/internal/valuetree"
)

// Header renders the comment block §6 prepends to a structured file
// when unresolved conflicts remain: one line per conflict listing its
// path and local/remote values. Both this and TemplateMarker must be
// greppable by the literal string "MERGE CONFLICT".
func Header(cs []*Conflict) string {
	var b strings.Builder
	b.WriteString("# MERGE CONFLICT: unresolved conflicts from this upgrade\n")
	for _, c := range cs {
		if c.Resolution != Unresolved {
			continue
		}
		fmt.Fprintf(&b, "#   %s: local=%s remote=%s\n", c.Path, render(c.Local), render(c.Remote))
	}
	b.WriteString("#\n")
	return b.String()
}

func render(v *valuetree.Value) string {
	if v == nil {
		return "<absent>"
	}
	out, err := valuetree.MarshalYAML(v)
	if err != nil {
		return "<unrenderable>"
	}
	return strings.TrimSpace(string(out))
}

// TemplateMarker renders the directive-commented conflict block §6
// inserts into a templated-text file in place of an unresolved block
// conflict.
func TemplateMarker(local, remote string) string {
	var b strings.Builder
	b.WriteString("{{- /* MERGE CONFLICT START */ -}}\n")
	b.WriteString("{{- /* LOCAL */ -}}\n")
	b.WriteString(local)
	b.WriteString("\n{{- /* REMOTE */ -}}\n")
	b.WriteString(remote)
	b.WriteString("\n{{- /* MERGE CONFLICT END */ -}}")
	return b.String()
}
