// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"testing"

	"github.com/policystack/policystack/internal/valuetree"
)

func parseValues(t *testing.T, doc string) *valuetree.Value {
	t.Helper()
	v, err := valuetree.ParseYAML([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestDetectValuesChangesFindsLeafDiff(t *testing.T) {
	old := parseValues(t, "a: 1\nb: 2\n")
	newV := parseValues(t, "a: 1\nb: 3\nc: 4\n")
	changes := DetectValuesChanges(old, newV)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}
	b, ok := changes["b"]
	if !ok || b.Old.Int != 2 || b.New.Int != 3 {
		t.Fatalf("b change = %+v", b)
	}
	c, ok := changes["c"]
	if !ok || c.Old != nil || c.New.Int != 4 {
		t.Fatalf("c change = %+v", c)
	}
}

func TestDetectValuesChangesNoChanges(t *testing.T) {
	old := parseValues(t, "a: 1\n")
	changes := DetectValuesChanges(old, old)
	if len(changes) != 0 {
		t.Fatalf("expected 0 changes, got %d", len(changes))
	}
}
