// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package apply

import (
	"context"

	"github.com/policystack/policystack/internal/conflict"
)

// FetchVersion materialises a template version's directory tree
// locally and returns its path plus a cleanup func the caller must
// invoke once done with it.
type FetchVersion func(ctx context.Context, template, version, repository string) (path string, cleanup func(), err error)

// Resolve receives a ConflictReport and must return it with every
// conflict's resolution set to a non-Unresolved variant, unless ctx
// is cancelled.
type Resolve func(ctx context.Context, report *conflict.Report) (*conflict.Report, error)

// UpgradeAllowed is the upgrade policy oracle.
type UpgradeAllowed func(ctx context.Context, from, to string) (allowed bool, reason string, err error)
