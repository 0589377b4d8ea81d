// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDigestIsStableAndContentSensitive(t *testing.T) {
	a := DigestBytes([]byte("hello"))
	b := DigestBytes([]byte("hello"))
	c := DigestBytes([]byte("goodbye"))
	if a != b {
		t.Fatalf("equal content produced different digests: %s vs %s", a, b)
	}
	if a == c {
		t.Fatal("different content produced equal digests")
	}
}

func TestCaptureBaselineAndPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "values.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(dir, "templates", "deploy.yaml"), "kind: Deployment\n")

	snap, err := CaptureBaseline(dir, "1.0.0", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(snap.Files), snap.Files)
	}

	snapPath := filepath.Join(dir, ".policystack", "snapshot.yaml")
	if err := Persist(snap, snapPath); err != nil {
		t.Fatal(err)
	}
	back, err := Load(snapPath)
	if err != nil {
		t.Fatal(err)
	}
	if back.Version != "1.0.0" {
		t.Fatalf("version = %q", back.Version)
	}
	if len(back.Files) != 2 {
		t.Fatalf("expected 2 files after round trip, got %d", len(back.Files))
	}
}

func TestDetectChangesClassifiesEachKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kept.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(dir, "modified.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(dir, "deleted.yaml"), "a: 1\n")

	baseline, err := CaptureBaseline(dir, "1.0.0", 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "deleted.yaml")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "modified.yaml"), "a: 2\n")
	writeFile(t, filepath.Join(dir, "added.yaml"), "a: 3\n")

	cs, err := DetectChanges(dir, baseline)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Status{
		"kept.yaml":     Unchanged,
		"modified.yaml": Modified,
		"deleted.yaml":  Deleted,
		"added.yaml":    Added,
	}
	for rel, status := range want {
		if cs.Files[rel] != status {
			t.Fatalf("%s classified as %v, want %v", rel, cs.Files[rel], status)
		}
	}
}
