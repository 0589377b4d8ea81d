// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/policystack/policystack/internal/snapshot"
)

// Status reports how an element's working tree has drifted from its
// last-captured baseline snapshot, driving §4.3's detect_changes
// operation from the command line.
type Status struct {
	Element string `arg:"" type:"existingdir" help:"Path to the element to inspect"`
}

func (c *Status) Run(g *Globals) error {
	path := filepath.Join(c.Element, ".policystack/snapshots/baseline.json")
	baseline, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	changes, err := snapshot.DetectChanges(c.Element, baseline)
	if err != nil {
		return fmt.Errorf("detect changes: %w", err)
	}
	paths := changes.ModifiedPaths()
	if len(paths) == 0 {
		fmt.Fprintf(os.Stdout, "%s: no drift from baseline %s\n", c.Element, baseline.Version)
		return nil
	}
	for _, rel := range paths {
		fmt.Fprintf(os.Stdout, "%s  %s\n", changes.Files[rel], rel)
	}
	return nil
}
