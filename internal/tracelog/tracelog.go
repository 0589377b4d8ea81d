// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tracelog adapts the domain's structured logging: leveled
// logrus fields for apply-stage step transitions, plus a debug-gated
// step timer.
package tracelog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Step logs an apply-stage transition with structured fields.
func Step(element, step string, fields logrus.Fields) {
	entry := logrus.WithField("element", element).WithField("step", step)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("apply stage")
}

// Tracker times successive steps, printing elapsed duration to
// stderr only when debug mode is on — mirrors the teacher's
// trace.Tracker used under its -V verbose flag.
type Tracker struct {
	debug bool
	last  time.Time
}

func NewTracker(debugMode bool) *Tracker {
	return &Tracker{debug: debugMode, last: time.Now()}
}

func (t *Tracker) StepNext(format string, a ...any) {
	if !t.debug {
		return
	}
	s := fmt.Sprintf(format, a...)
	now := time.Now()
	fmt.Fprintf(os.Stderr, "\x1b[35m* %s use time: %v\x1b[0m\n", strings.Trim(s, "\n"), now.Sub(t.last))
	t.last = now
}
