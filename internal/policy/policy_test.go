// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/policystack/policystack/internal/apply"
)

var _ apply.UpgradeAllowed = (&oracle{template: "web-service"}).Allowed

func TestOpenAndCloseWithoutConnecting(t *testing.T) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = "127.0.0.1:3306"
	cfg.User = "policystack"
	cfg.DBName = "policystack"

	o, err := Open(cfg, "web-service")
	if err != nil {
		t.Fatal(err)
	}
	// database/sql connections are lazy: Open never dials, so Close
	// must succeed even though nothing ever talked to a server.
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
