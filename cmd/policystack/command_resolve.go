// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/policystack/policystack/internal/apply"
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/config"
)

// Resolve re-opens an element's leftover conflicts.yaml and drives it
// through the configured Resolve transport, without re-running the
// full upgrade (the merge, transcribe, and backup steps already ran
// when the conflicts were first persisted).
type Resolve struct {
	Element string `arg:"" type:"existingdir" help:"Path to the element carrying unresolved conflicts"`
}

func (c *Resolve) Run(g *Globals) error {
	ctx := context.Background()

	path := filepath.Join(c.Element, ".policystack/upgrade/conflicts.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	report, err := conflict.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if !report.HasUnresolved() {
		fmt.Fprintln(os.Stdout, "nothing left to resolve")
		return nil
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	resolved, err := resolveCollaborator(cfg)(ctx, report)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if err := apply.ApplyResolvedReport(c.Element, resolved); err != nil {
		return fmt.Errorf("apply resolutions: %w", err)
	}
	if resolved.HasUnresolved() {
		fmt.Fprintf(os.Stdout, "%d conflict(s) still unresolved\n", resolved.UnresolvedCount())
		return nil
	}
	fmt.Fprintln(os.Stdout, "all conflicts resolved")
	return nil
}
