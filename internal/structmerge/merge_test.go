// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package structmerge

import (
	"testing"

	"github.com/policystack/policystack/internal/valuetree"
)

func parse(t *testing.T, doc string) *valuetree.Value {
	t.Helper()
	v, err := valuetree.ParseYAML([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return v
}

func TestIdentity(t *testing.T) {
	b := parse(t, "a: 1\nb: [1, 2, 3]\n")
	merged, conflicts := Merge(valuetree.Root(), b, b, b)
	if len(conflicts) != 0 {
		t.Fatalf("expected zero conflicts, got %d", len(conflicts))
	}
	if !valuetree.Equal(merged, b) {
		t.Fatalf("merge(B,B,B) != B")
	}
}

func TestNoOpLocalWithoutDeletions(t *testing.T) {
	b := parse(t, "a: 1\nb: 2\n")
	r := parse(t, "a: 1\nb: 3\nc: 4\n")
	merged, conflicts := Merge(valuetree.Root(), b, b, r)
	if len(conflicts) != 0 {
		t.Fatalf("expected zero conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	if !valuetree.Equal(merged, r) {
		t.Fatalf("merge(B,B,R) != R")
	}
}

func TestNoOpRemoteWithoutDeletions(t *testing.T) {
	b := parse(t, "a: 1\nb: 2\n")
	l := parse(t, "a: 1\nb: 5\nc: 9\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, b)
	if len(conflicts) != 0 {
		t.Fatalf("expected zero conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	if !valuetree.Equal(merged, l) {
		t.Fatalf("merge(B,L,B) != L")
	}
}

// S1. Remote-only addition.
func TestScenarioRemoteOnlyAddition(t *testing.T) {
	b := parse(t, "a: 1\n")
	l := parse(t, "a: 1\n")
	r := parse(t, "a: 1\nb: 2\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 0 {
		t.Fatalf("expected 0 conflicts, got %d", len(conflicts))
	}
	want := parse(t, "a: 1\nb: 2\n")
	if !valuetree.Equal(merged, want) {
		t.Fatalf("merged = %+v, want %+v", merged, want)
	}
}

// S2. Local-only edit.
func TestScenarioLocalOnlyEdit(t *testing.T) {
	b := parse(t, "timeout: 30\n")
	l := parse(t, "timeout: 60\n")
	r := parse(t, "timeout: 30\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 0 {
		t.Fatalf("expected 0 conflicts, got %d", len(conflicts))
	}
	want := parse(t, "timeout: 60\n")
	if !valuetree.Equal(merged, want) {
		t.Fatalf("merged = %+v, want %+v", merged, want)
	}
}

// S3. Both-changed conflict.
func TestScenarioBothChangedConflict(t *testing.T) {
	b := parse(t, "retries: 3\n")
	l := parse(t, "retries: 5\n")
	r := parse(t, "retries: 10\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.Path.String() != "retries" || c.AutoResolvable {
		t.Fatalf("conflict = %+v", c)
	}
	want := parse(t, "retries: 5\n")
	if !valuetree.Equal(merged, want) {
		t.Fatalf("merged = %+v, want %+v", merged, want)
	}
}

// S4. Named-list merge.
func TestScenarioNamedListMerge(t *testing.T) {
	b := parse(t, "policies:\n  - name: a\n    level: low\n")
	l := parse(t, "policies:\n  - name: a\n    level: high\n  - name: b\n    level: mid\n")
	r := parse(t, "policies:\n  - name: a\n    level: low\n  - name: c\n    level: extra\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 0 {
		t.Fatalf("expected 0 conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	policies, ok := merged.Map.Get("policies")
	if !ok || policies.Kind != valuetree.KindSequence {
		t.Fatalf("expected policies sequence, got %+v", merged)
	}
	if len(policies.Seq) != 3 {
		t.Fatalf("expected 3 policies, got %d", len(policies.Seq))
	}
	names := make([]string, len(policies.Seq))
	for i, item := range policies.Seq {
		names[i], _ = valuetree.Name(item)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	level, _ := valuetree.Get(merged, valuetree.Root().Named("policies", "a").Key("level"))
	if level.Str != "high" {
		t.Fatalf("policies[name=a].level = %q, want high", level.Str)
	}
}

// S5. Remote deletes key user kept.
func TestScenarioRemoteDeletesKeptKey(t *testing.T) {
	b := parse(t, "flag: true\n")
	l := parse(t, "flag: true\n")
	r := parse(t, "{}\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Path.String() != "flag" {
		t.Fatalf("conflict path = %q", conflicts[0].Path)
	}
	want := parse(t, "flag: true\n")
	if !valuetree.Equal(merged, want) {
		t.Fatalf("merged = %+v, want flag kept", merged)
	}
}

func TestMappingOrderFollowsLocalThenRemote(t *testing.T) {
	b := parse(t, "{}\n")
	l := parse(t, "b: 1\na: 2\n")
	r := parse(t, "b: 1\na: 2\nc: 3\nd: 4\n")
	merged, _ := Merge(valuetree.Root(), b, l, r)
	got := merged.Map.Keys()
	want := []string{"b", "a", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestCommentPreservation(t *testing.T) {
	l := parse(t, "# keep me\nretries: 5\n")
	b := parse(t, "retries: 3\n")
	r := parse(t, "retries: 3\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 0 {
		t.Fatalf("expected 0 conflicts, got %d", len(conflicts))
	}
	retries, _ := merged.Map.Get("retries")
	if retries.Comment.Head != "keep me" {
		t.Fatalf("comment = %q, want preserved local comment", retries.Comment.Head)
	}
}

func TestPositionalListConflict(t *testing.T) {
	b := parse(t, "items:\n  - 1\n  - 2\n")
	l := parse(t, "items:\n  - 1\n  - 2\n  - 3\n")
	r := parse(t, "items:\n  - 9\n  - 2\n")
	merged, conflicts := Merge(valuetree.Root(), b, l, r)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Path.String() != "items" {
		t.Fatalf("conflict path = %q, want items", conflicts[0].Path)
	}
	items, _ := merged.Map.Get("items")
	if len(items.Seq) != 3 {
		t.Fatalf("expected positional conflict to keep local (3 items), got %d", len(items.Seq))
	}
}
