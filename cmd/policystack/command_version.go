// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
)

type Version struct {
	BuildOptions bool `name:"build-options" help:"Also print build options"`
}

func (c *Version) Run(g *Globals) error {
	fmt.Fprintln(os.Stdout, versionString())
	if !c.BuildOptions {
		return nil
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	fmt.Fprintf(os.Stdout, "go:   %s\narch: %s\nos:   %s\n", info.GoVersion, runtime.GOARCH, runtime.GOOS)
	return nil
}
