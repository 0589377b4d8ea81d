// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/policystack/policystack/internal/resolver/httpresolver"
)

// Serve runs the reference httpresolver review service, the
// counterpart an operator points the http resolver transport at.
type Serve struct {
	Listen string `default:":8080" help:"Address to listen on"`
}

func (c *Serve) Run(g *Globals) error {
	secret := os.Getenv("POLICYSTACK_RESOLVER_SECRET")
	if secret == "" {
		return fmt.Errorf("POLICYSTACK_RESOLVER_SECRET must be set")
	}
	srv := httpresolver.NewServer([]byte(secret))
	httpSrv := &http.Server{
		Addr:         c.Listen,
		Handler:      http.HandlerFunc(srv.ServeHTTP),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logrus.Infof("policystack resolver service listening on %s", c.Listen)
	return httpSrv.ListenAndServe()
}
