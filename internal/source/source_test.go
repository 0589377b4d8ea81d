// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/policystack/policystack/internal/apply"
)

var _ apply.FetchVersion = (&Source{}).Fetch

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0o644}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestSource(t *testing.T, bucket string, objects map[string][]byte) (*Source, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	src, err := New(context.Background(), Config{
		Bucket:          bucket,
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return src, srv
}

func TestFetchExtractsTarballToTempDir(t *testing.T) {
	key := "/" + filepath.ToSlash(filepath.Join("acme-bucket", ObjectKey("default", "web-service", "2.0.0")))
	tarball := buildTarball(t, map[string]string{
		"values.yaml":        "replicas: 2\n",
		"templates/pod.yaml": "kind: Pod\n",
	})
	src, _ := newTestSource(t, "acme-bucket", map[string][]byte{key: tarball})

	dir, cleanup, err := src.Fetch(context.Background(), "web-service", "2.0.0", "default")
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	values, err := os.ReadFile(filepath.Join(dir, "values.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(values) != "replicas: 2\n" {
		t.Fatalf("values.yaml = %q", values)
	}
	if _, err := os.Stat(filepath.Join(dir, "templates", "pod.yaml")); err != nil {
		t.Fatalf("templates/pod.yaml not extracted: %v", err)
	}
}

func TestFetchMissingObjectReturnsError(t *testing.T) {
	src, _ := newTestSource(t, "acme-bucket", map[string][]byte{})

	_, _, err := src.Fetch(context.Background(), "web-service", "9.9.9", "default")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestCleanupRemovesTempDir(t *testing.T) {
	key := "/" + filepath.ToSlash(filepath.Join("acme-bucket", ObjectKey("default", "web-service", "1.0.0")))
	tarball := buildTarball(t, map[string]string{"values.yaml": "replicas: 1\n"})
	src, _ := newTestSource(t, "acme-bucket", map[string][]byte{key: tarball})

	dir, cleanup, err := src.Fetch(context.Background(), "web-service", "1.0.0", "default")
	if err != nil {
		t.Fatal(err)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir removed, stat err = %v", err)
	}
}
