// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressBar renders the upgrade command's coarse step sequence
// (fetch base, fetch remote, apply) as a single bar when stdout is a
// terminal, and falls back to plain step lines otherwise - mirroring
// the teacher's own verbose/non-verbose NewBar split, but rendered
// with mpb since this package is the only place progress bars belong.
type ProgressBar struct {
	p           *mpb.Progress
	bar         *mpb.Bar
	stepCurrent int
	stepEnd     int
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func NewProgressBar(total int, verbose bool) *ProgressBar {
	if verbose || !isTerminal(os.Stdout.Fd()) {
		return &ProgressBar{stepEnd: total}
	}
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("upgrade", decor.WC{W: 10})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return &ProgressBar{p: p, bar: bar, stepEnd: total}
}

// Step advances the bar by one for the step that just started. Plain
// step-line mode prints description; the rendered bar shows only the
// step count and does not display description.
func (b *ProgressBar) Step(description string) {
	b.stepCurrent++
	if b.bar == nil {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s...\n", b.stepCurrent, b.stepEnd, description)
		return
	}
	b.bar.Increment()
}

func (b *ProgressBar) Done() {
	if b.p != nil {
		b.p.Wait()
	}
}
