// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/policystack/policystack/internal/apply"
)

type App struct {
	Globals
	Upgrade Upgrade `cmd:"upgrade" help:"Upgrade an installed element to a newer template version"`
	Resolve Resolve `cmd:"resolve" help:"Resolve an element's leftover conflicts from a previous upgrade"`
	Status  Status  `cmd:"status" help:"Show an element's drift from its baseline snapshot"`
	Serve   Serve   `cmd:"serve" help:"Run the reference HTTP conflict-review service"`
	Version Version `cmd:"version" help:"Display version information"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("policystack"),
		kong.Description("Upgrade templated configuration in place, three-way-merging local edits against a new template version"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	now := time.Now()
	err := ctx.Run(&app.Globals)
	if app.Verbose {
		app.DbgPrint("time spent: %v", time.Since(now))
	}
	if err == nil {
		return
	}
	os.Stderr.WriteString(err.Error() + "\n")
	if _, ok := err.(*apply.ErrUpgradeRefused); ok {
		os.Exit(2)
	}
	os.Exit(1)
}
