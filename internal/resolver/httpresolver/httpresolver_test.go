// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpresolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/policystack/policystack/internal/apply"
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

var _ apply.Resolve = (&Client{}).Resolve

func unresolvedReport() *conflict.Report {
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

func TestClientSubmitsAndPollsUntilResolved(t *testing.T) {
	secret := []byte("test-secret")
	srv := NewServer(secret)
	ts := httptest.NewServer(http.HandlerFunc(srv.ServeHTTP))
	defer ts.Close()

	client := NewClient(ts.URL, secret)
	client.PollInterval = 20 * time.Millisecond

	report := unresolvedReport()

	// Simulate a reviewer: wait for the submission to land, then post
	// a fully resolved report back.
	go func() {
		id := reviewID(report)
		for {
			srv.mu.Lock()
			_, ok := srv.reviews[id]
			srv.mu.Unlock()
			if ok {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		resolved := unresolvedReport()
		resolved.Files["values.yaml"][0].Resolution = conflict.TakeRemote
		data, err := resolved.Marshal()
		if err != nil {
			t.Error(err)
			return
		}
		resolverClient := NewClient(ts.URL, secret)
		resp, err := resolverClient.do(context.Background(), http.MethodPut, "/reviews/"+id+"/resolution", resolved.Element, data)
		if err != nil {
			t.Error(err)
			return
		}
		resp.Body.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := client.Resolve(ctx, report)
	if err != nil {
		t.Fatal(err)
	}
	cs := got.Files["values.yaml"]
	if len(cs) != 1 || cs[0].Resolution != conflict.TakeRemote {
		t.Fatalf("expected TakeRemote, got %+v", cs)
	}
}

func TestClientRejectsUnauthenticatedRequest(t *testing.T) {
	srv := NewServer([]byte("test-secret"))
	ts := httptest.NewServer(http.HandlerFunc(srv.ServeHTTP))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/reviews/whatever", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
