// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package terminalresolver implements an interactive Resolve
// collaborator: for every still-Unresolved conflict it prints the
// local and remote values and prompts the user to pick one.
package terminalresolver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/valuetree"
)

// Resolver prompts over In/Out, which are typically a terminal's
// stdin/stdout but may be any reader/writer pair (a pty slave in
// tests, for instance).
type Resolver struct {
	In  io.Reader
	Out io.Writer
}

// New builds a Resolver.
func New(in io.Reader, out io.Writer) *Resolver {
	return &Resolver{In: in, Out: out}
}

// Resolve implements internal/apply.Resolve.
func (r *Resolver) Resolve(ctx context.Context, report *conflict.Report) (*conflict.Report, error) {
	scanner := bufio.NewScanner(r.In)

	files := make([]string, 0, len(report.Files))
	for f := range report.Files {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, file := range files {
		for _, c := range report.Files[file] {
			if c.Resolution != conflict.Unresolved {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			resolution, err := r.prompt(scanner, file, c)
			if err != nil {
				return nil, err
			}
			c.Resolution = resolution
		}
	}
	return report, nil
}

func (r *Resolver) prompt(scanner *bufio.Scanner, file string, c *conflict.Conflict) (conflict.Resolution, error) {
	for {
		fmt.Fprintf(r.Out, "conflict in %s at %s\n", file, c.Path.String())
		printSide(r.Out, "local", c.Local)
		printSide(r.Out, "remote", c.Remote)
		fmt.Fprint(r.Out, "keep (l)ocal, take (r)emote, (q)uit? ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return conflict.Unresolved, err
			}
			return conflict.Unresolved, io.ErrUnexpectedEOF
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "l", "local":
			return conflict.KeepLocal, nil
		case "r", "remote":
			return conflict.TakeRemote, nil
		case "q", "quit":
			return conflict.Unresolved, context.Canceled
		default:
			fmt.Fprintln(r.Out, "please answer l, r, or q")
		}
	}
}

func printSide(w io.Writer, label string, v *valuetree.Value) {
	if v == nil {
		fmt.Fprintf(w, "  %s: <absent>\n", label)
		return
	}
	data, err := valuetree.MarshalYAML(v)
	if err != nil {
		fmt.Fprintf(w, "  %s: <unrenderable>\n", label)
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
