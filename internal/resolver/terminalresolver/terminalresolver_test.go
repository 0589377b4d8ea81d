// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package terminalresolver

import (
	"context"
	"strings"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
	"github.com/hinshun/vt10x"

	"github.com/policystack/policystack/internal/apply"
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

var _ apply.Resolve = (&Resolver{}).Resolve

func oneConflictReport() *conflict.Report {
	r := conflict.NewReport("web-service", "1.0.0", "2.0.0")
	c := conflict.New(
		valuetree.Root().Key("timeout"),
		valuetree.NewInt(30),
		valuetree.NewInt(45),
		valuetree.NewInt(90),
	)
	r.Add("values.yaml", c)
	return r
}

func TestResolveKeepLocalOverExpectConsole(t *testing.T) {
	c, err := expect.NewConsole()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	report := oneConflictReport()
	resolver := New(c.Tty(), c.Tty())

	done := make(chan struct {
		report *conflict.Report
		err    error
	}, 1)
	go func() {
		r, err := resolver.Resolve(context.Background(), report)
		done <- struct {
			report *conflict.Report
			err    error
		}{r, err}
	}()

	if _, err := c.ExpectString("keep (l)ocal"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SendLine("l"); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatal(res.err)
		}
		cs := res.report.Files["values.yaml"]
		if len(cs) != 1 || cs[0].Resolution != conflict.KeepLocal {
			t.Fatalf("expected KeepLocal, got %+v", cs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Resolve")
	}
}

func TestResolveQuitCancels(t *testing.T) {
	c, err := expect.NewConsole()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	report := oneConflictReport()
	resolver := New(c.Tty(), c.Tty())

	errCh := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), report)
		errCh <- err
	}()

	if _, err := c.ExpectString("(q)uit"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SendLine("q"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Resolve")
	}
}

func TestResolveRenderedPromptViaPTYAndVT10x(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer tty.Close()

	state := &vt10x.State{}
	vt, err := vt10x.Create(state, ptmx)
	if err != nil {
		t.Fatal(err)
	}
	defer vt.Close()

	report := oneConflictReport()
	resolver := New(tty, tty)

	go func() {
		_, _ = resolver.Resolve(context.Background(), report)
	}()

	if _, err := tty.Write([]byte("l\n")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		state.Lock()
		rendered := state.String()
		state.Unlock()
		if strings.Contains(rendered, "keep") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("prompt text never appeared in the emulated terminal")
}
