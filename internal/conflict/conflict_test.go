// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package conflict

import (
	"strings"
	"testing"

	"github.com/policystack/policystack/internal/valuetree"
)

func TestAutoResolutionKeepLocal(t *testing.T) {
	base := valuetree.NewInt(1)
	local := valuetree.NewInt(2)
	remote := valuetree.NewInt(1)
	c := New(valuetree.Root().Key("x"), base, local, remote)
	if c.Resolution != KeepLocal || !c.AutoResolvable {
		t.Fatalf("got resolution=%v auto=%v, want KeepLocal/true", c.Resolution, c.AutoResolvable)
	}
}

func TestAutoResolutionTakeRemote(t *testing.T) {
	base := valuetree.NewInt(1)
	local := valuetree.NewInt(1)
	remote := valuetree.NewInt(2)
	c := New(valuetree.Root().Key("x"), base, local, remote)
	if c.Resolution != TakeRemote || !c.AutoResolvable {
		t.Fatalf("got resolution=%v auto=%v, want TakeRemote/true", c.Resolution, c.AutoResolvable)
	}
}

func TestAutoResolutionUnresolved(t *testing.T) {
	base := valuetree.NewInt(3)
	local := valuetree.NewInt(5)
	remote := valuetree.NewInt(10)
	c := New(valuetree.Root().Key("retries"), base, local, remote)
	if c.Resolution != Unresolved || c.AutoResolvable {
		t.Fatalf("got resolution=%v auto=%v, want Unresolved/false", c.Resolution, c.AutoResolvable)
	}
}

func TestApplyTakeRemote(t *testing.T) {
	root := valuetree.NewMapping()
	root.Set("flag", valuetree.NewBool(true))
	tree := valuetree.NewMappingValue(root)

	c := New(valuetree.Root().Key("flag"), valuetree.NewBool(true), valuetree.NewBool(true), nil)
	c.Resolution = TakeRemote // simulate resolver choosing deletion
	if err := Apply(tree, c); err != nil {
		t.Fatal(err)
	}
	if tree.Map.Has("flag") {
		t.Fatal("expected flag removed after TakeRemote of an absence")
	}
}

func TestReportMarshalUnmarshalRoundTrip(t *testing.T) {
	r := NewReport("my-element", "1.0.0", "2.0.0")
	c := New(valuetree.Root().Key("retries"), valuetree.NewInt(3), valuetree.NewInt(5), valuetree.NewInt(10))
	r.Add("values.yaml", c)

	data, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "retries") {
		t.Fatalf("marshalled report missing path: %s", data)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.FromVersion != "1.0.0" || back.ToVersion != "2.0.0" {
		t.Fatalf("version fields not round-tripped: %+v", back)
	}
	if len(back.Files["values.yaml"]) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(back.Files["values.yaml"]))
	}
}

func TestHeaderIsGreppable(t *testing.T) {
	c := New(valuetree.Root().Key("retries"), valuetree.NewInt(3), valuetree.NewInt(5), valuetree.NewInt(10))
	h := Header([]*Conflict{c})
	if !strings.Contains(h, "MERGE CONFLICT") {
		t.Fatalf("header not greppable: %s", h)
	}
}

func TestTemplateMarkerIsGreppable(t *testing.T) {
	m := TemplateMarker("local text", "remote text")
	if !strings.Contains(m, "MERGE CONFLICT") {
		t.Fatalf("marker not greppable: %s", m)
	}
}
