// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpresolver

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/policystack/policystack/internal/conflict"
)

const contentTypeReport = "application/x-yaml"

// review tracks one in-flight ConflictReport awaiting a human
// decision.
type review struct {
	report   *conflict.Report
	resolved bool
}

// Server is a minimal reference review service: it accepts a
// ConflictReport, holds it until a reviewer posts back a fully
// resolved version, and serves it to a polling client in the
// meantime. It exists so internal/resolver/httpresolver's client can
// be exercised end to end in tests and so an operator has something
// concrete to run rather than implementing the resolver protocol
// from scratch.
type Server struct {
	Secret []byte

	mu      sync.Mutex
	reviews map[string]*review
	r       *mux.Router
}

// NewServer builds a Server authenticating requests with secret.
func NewServer(secret []byte) *Server {
	s := &Server{Secret: secret, reviews: make(map[string]*review)}
	r := mux.NewRouter()
	r.HandleFunc("/reviews/{id}", s.authenticated(s.handleCreate)).Methods(http.MethodPost)
	r.HandleFunc("/reviews/{id}", s.authenticated(s.handleGet)).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{id}/resolution", s.authenticated(s.handleResolve)).Methods(http.MethodPut)
	s.r = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := parseBearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := parseToken(s.Secret, token); err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func readReport(r *http.Request) (*conflict.Report, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return conflict.Unmarshal(data)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := readReport(r)
	if err != nil {
		http.Error(w, "decode report: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.reviews[id] = &review{report: report}
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	rv, ok := s.reviews[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown review", http.StatusNotFound)
		return
	}
	if !rv.resolved {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data, err := rv.report.Marshal()
	if err != nil {
		http.Error(w, "marshal report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeReport)
	_, _ = w.Write(data)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := readReport(r)
	if err != nil {
		http.Error(w, "decode report: "+err.Error(), http.StatusBadRequest)
		return
	}
	if report.HasUnresolved() {
		http.Error(w, "resolution still has unresolved conflicts", http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	rv, ok := s.reviews[id]
	if ok {
		rv.report = report
		rv.resolved = true
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown review", http.StatusNotFound)
		return
	}
	logrus.WithField("review", id).Info("httpresolver: review resolved")
	w.WriteHeader(http.StatusNoContent)
}

func parseBearerToken(auth string) (string, bool) {
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return "", false
	}
	return auth[len(prefix):], true
}
