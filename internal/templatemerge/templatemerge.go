// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package templatemerge implements the three-way merge over
// templated-text files: documents tokenised into a sequence of static
// and `{{ ... }}` directive blocks, merged block by block rather than
// line by line.
package templatemerge

import (
	"strings"

	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

// Kind tags a Block as a literal run of static text or an opaque
// `{{ ... }}` directive.
type Kind int

const (
	Static Kind = iota
	Directive
)

// Block is one token of a tokenised templated-text file.
type Block struct {
	Kind Kind
	Text string
}

// Tokenize splits doc into Static/Directive blocks. A directive is the
// maximal `{{ ... }}` run not containing a nested "}}"; static runs
// between directives are single blocks; empty or whitespace-only
// static blocks are dropped.
func Tokenize(doc string) []Block {
	var blocks []Block
	i := 0
	var staticStart int
	flushStatic := func(end int) {
		text := doc[staticStart:end]
		if strings.TrimSpace(text) == "" {
			return
		}
		blocks = append(blocks, Block{Kind: Static, Text: text})
	}
	for i < len(doc) {
		open := strings.Index(doc[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		close := strings.Index(doc[open:], "}}")
		if close < 0 {
			break
		}
		close += open + len("}}")
		flushStatic(open)
		blocks = append(blocks, Block{Kind: Directive, Text: doc[open:close]})
		staticStart = close
		i = close
	}
	flushStatic(len(doc))
	return blocks
}

// Merge performs the three-way merge over base/local/remote templated
// text: if the local and remote block counts differ, the whole file
// is a conflict (local kept verbatim, conflict at path "entire_file").
// Otherwise each block index is merged with the scalar three-way
// rule; an unresolved index gets a conflict at path "block_<i>" and a
// directive-safe marker spliced into the output in place of the
// disputed block.
func Merge(base, local, remote string) (string, []*conflict.Conflict) {
	localBlocks := Tokenize(local)
	remoteBlocks := Tokenize(remote)

	if len(localBlocks) != len(remoteBlocks) {
		c := conflict.New(valuetree.EntireFile(),
			valuetree.NewString(base), valuetree.NewString(local), valuetree.NewString(remote))
		return local, []*conflict.Conflict{c}
	}

	baseBlocks := Tokenize(base)
	var out strings.Builder
	var conflicts []*conflict.Conflict
	for idx := range localBlocks {
		lv := localBlocks[idx].Text
		rv := remoteBlocks[idx].Text
		var bv string
		hasBase := idx < len(baseBlocks)
		if hasBase {
			bv = baseBlocks[idx].Text
		}

		switch {
		case lv == rv:
			out.WriteString(lv)
		case hasBase && bv == lv && bv != rv:
			out.WriteString(rv)
		case hasBase && bv == rv && bv != lv:
			out.WriteString(lv)
		default:
			var baseVal *valuetree.Value
			if hasBase {
				baseVal = valuetree.NewString(bv)
			}
			c := conflict.New(valuetree.Block(idx), baseVal, valuetree.NewString(lv), valuetree.NewString(rv))
			conflicts = append(conflicts, c)
			out.WriteString(conflict.TemplateMarker(lv, rv))
		}
	}
	return out.String(), conflicts
}
