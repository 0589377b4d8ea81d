// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package policy implements a reference UpgradeAllowed collaborator
// backed by a MySQL table of allowed (from_version, to_version)
// transitions, keyed per template.
package policy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Oracle answers whether an upgrade transition is permitted for a
// template.
type Oracle interface {
	// Allowed matches internal/apply.UpgradeAllowed's signature.
	Allowed(ctx context.Context, from, to string) (bool, string, error)
	Close() error
}

type oracle struct {
	db       *sql.DB
	template string
}

var _ Oracle = &oracle{}

// Open connects to MySQL using cfg and scopes every lookup to
// template — one Oracle per template, mirroring how
// internal/apply.Run is itself scoped to one element at a time.
func Open(cfg *mysql.Config, template string) (Oracle, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("policy: new connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &oracle{db: db, template: template}, nil
}

func (o *oracle) Close() error {
	return o.db.Close()
}

// Allowed looks up the transitions table for an explicit row matching
// (template, from, to). A row with allowed = 0 refuses the upgrade
// with its stored reason; no row at all refuses with a generic
// "no policy" reason, since an unlisted transition is not implicitly
// safe.
func (o *oracle) Allowed(ctx context.Context, from, to string) (bool, string, error) {
	row := o.db.QueryRowContext(ctx,
		"select allowed, reason from upgrade_transitions where template = ? and from_version = ? and to_version = ?",
		o.template, from, to)
	var allowed bool
	var reason sql.NullString
	switch err := row.Scan(&allowed, &reason); {
	case err == sql.ErrNoRows:
		return false, fmt.Sprintf("no policy row for %s %s -> %s", o.template, from, to), nil
	case err != nil:
		return false, "", fmt.Errorf("policy: query %s %s -> %s: %w", o.template, from, to, err)
	}
	if !allowed {
		return false, reason.String, nil
	}
	return true, reason.String, nil
}
