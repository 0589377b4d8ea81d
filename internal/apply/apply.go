// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package apply implements the Apply Stage: the only component that
// mutates the filesystem, and the only one that owns the backup
// invariant. It orchestrates the structured and templated-text
// mergers, transcribes the opaque subtrees, persists whatever
// conflicts remain, refreshes the snapshot, and commits or rolls
// back.
package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/policystack/policystack/internal/backup"
	"github.com/policystack/policystack/internal/conflict"
	"github.com/policystack/policystack/internal/snapshot"
	"github.com/policystack/policystack/internal/structmerge"
	"github.com/policystack/policystack/internal/templatemerge"
	"github.com/policystack/policystack/internal/tracelog"
	"github.com/policystack/policystack/internal/valuetree"
)

const (
	valuesFile   = "values.yaml"
	chartFile    = "Chart.yaml"
	converterDir = "converters"
	templatesDir = "templates"
	examplesDir  = "examples"
	upgradeDir   = ".policystack/upgrade"
	snapshotPath = ".policystack/snapshots/baseline.json"
	conflictsRel = ".policystack/upgrade/conflicts.yaml"
)

// Request bundles everything the Apply Stage needs: the element
// directory being upgraded in place, the materialised remote version
// directory, an optional materialised base (common ancestor) version
// directory, and version identifiers used for reporting and the new
// snapshot.
type Request struct {
	ElementName string
	ElementDir  string
	RemoteDir   string
	BaseDir     string // may be "" if no baseline was ever captured
	FromVersion string
	ToVersion   string
	Resolve     Resolve // may be nil: any unresolved conflicts are simply persisted
	Verbose     bool    // gates tracelog.Tracker's per-step timings
}

// Result summarises a completed apply.
type Result struct {
	Report        *conflict.Report
	HasUnresolved bool
}

// Run executes the full §4.5 protocol against req, returning the
// final conflict report. now is injected so callers control the
// snapshot's created_at without this package reaching for wall-clock
// time itself.
func Run(ctx context.Context, req Request, now time.Time) (*Result, error) {
	if req.ElementDir == "" || req.RemoteDir == "" {
		return nil, &ErrNotFound{What: "element or remote directory"}
	}

	parentDir := filepath.Dir(req.ElementDir)
	backupDir := filepath.Join(parentDir, backup.DirName(req.ElementName))
	tarballPath := backup.TarballPath(filepath.Join(parentDir, upgradeDir), req.ElementName)

	if _, err := os.Stat(backupDir); err == nil {
		return nil, &ErrInvalidState{Reason: fmt.Sprintf("leftover backup directory %s from a prior interrupted upgrade", backupDir)}
	}

	tracker := tracelog.NewTracker(req.Verbose)

	logStep(tracker, req.ElementName, "backup")
	if err := backup.Create(req.ElementDir, backupDir, tarballPath); err != nil {
		return nil, &ErrIOFailure{Op: "backup", Err: err}
	}

	result, err := runLocked(ctx, req, tracker)
	if err != nil {
		logStep(tracker, req.ElementName, "rollback")
		if rerr := rollback(req.ElementDir, backupDir); rerr != nil {
			return nil, &ErrIOFailure{Op: "rollback", Err: fmt.Errorf("%w (original error: %v)", rerr, err)}
		}
		return nil, err
	}

	logStep(tracker, req.ElementName, "refresh-snapshot")
	if err := refreshSnapshot(req.ElementDir, req.ToVersion, now); err != nil {
		if rerr := rollback(req.ElementDir, backupDir); rerr != nil {
			return nil, &ErrIOFailure{Op: "rollback", Err: fmt.Errorf("%w (original error: %v)", rerr, err)}
		}
		return nil, &ErrIOFailure{Op: "refresh-snapshot", Err: err}
	}

	logStep(tracker, req.ElementName, "commit")
	if err := backup.Commit(backupDir, tarballPath); err != nil {
		return nil, &ErrIOFailure{Op: "commit", Err: err}
	}
	return result, nil
}

// logStep records an apply-stage transition both as a structured
// logrus entry (tracelog.Step, always on) and, under req.Verbose, as
// a human-readable elapsed-time line (tracelog.Tracker.StepNext).
func logStep(tracker *tracelog.Tracker, element, step string) {
	tracelog.Step(element, step, nil)
	tracker.StepNext("%s: %s", element, step)
}

func rollback(elementDir, backupDir string) error {
	if err := backup.Restore(backupDir, elementDir); err != nil {
		return err
	}
	return os.RemoveAll(backupDir)
}

// runLocked performs steps 2-4 of the protocol (merge, transcribe,
// persist conflicts); the backup is already in place and rollback is
// the caller's responsibility.
func runLocked(ctx context.Context, req Request, tracker *tracelog.Tracker) (*Result, error) {
	report := conflict.NewReport(req.ElementName, req.FromVersion, req.ToVersion)

	logStep(tracker, req.ElementName, "merge-values")
	if err := mergeValues(req, report); err != nil {
		return nil, &ErrIOFailure{Op: "merge values", Err: err}
	}
	logStep(tracker, req.ElementName, "merge-converters")
	if err := mergeConverters(req, report); err != nil {
		return nil, &ErrIOFailure{Op: "merge converters", Err: err}
	}
	logStep(tracker, req.ElementName, "transcribe")
	if err := transcribe(req); err != nil {
		return nil, &ErrIOFailure{Op: "transcribe", Err: err}
	}

	if report.HasUnresolved() && req.Resolve != nil {
		logStep(tracker, req.ElementName, "resolve")
		resolved, err := req.Resolve(ctx, report)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &ErrCancelled{Err: err}
			}
			return nil, &ErrExternalFailure{Collaborator: "resolve", Err: err}
		}
		report = resolved
		if err := reapplyResolutions(req, report); err != nil {
			return nil, &ErrIOFailure{Op: "apply resolutions", Err: err}
		}
	}

	logStep(tracker, req.ElementName, "persist-conflicts")
	if err := persistConflicts(req, report); err != nil {
		return nil, &ErrIOFailure{Op: "persist conflicts", Err: err}
	}

	return &Result{Report: report, HasUnresolved: report.HasUnresolved()}, nil
}

// mergeValues runs the structured merger over the primary values
// document, applies every auto-resolvable conflict immediately (per
// §4.4, auto-resolution happens at construction time, but the merged
// tree only reflects it once ApplyAll runs), and writes the result
// back, still carrying a plaintext header if unresolved conflicts
// remain after this pass (resolved further below if a Resolve
// collaborator is available).
func mergeValues(req Request, report *conflict.Report) error {
	localPath := filepath.Join(req.ElementDir, valuesFile)
	remotePath := filepath.Join(req.RemoteDir, valuesFile)

	local, err := readValues(localPath)
	if err != nil {
		return err
	}
	remote, err := readValues(remotePath)
	if err != nil {
		return err
	}
	var base *valuetree.Value
	if req.BaseDir != "" {
		base, err = readValues(filepath.Join(req.BaseDir, valuesFile))
		if err != nil {
			return err
		}
	}

	merged, conflicts := structmerge.Merge(valuetree.Root(), base, local, remote)
	remaining, err := conflict.ApplyAll(merged, autoResolved(conflicts))
	if err != nil {
		return err
	}
	_ = remaining // autoResolved already excludes anything ApplyAll would flag unresolved

	for _, c := range conflicts {
		report.Add(valuesFile, c)
	}
	return writeValues(localPath, merged, report.Files[valuesFile])
}

// autoResolved filters to conflicts the auto-resolution rule already
// settled, leaving Unresolved ones untouched in the tree (their
// tentative local value stands) until a Resolve pass, if any, decides
// them.
func autoResolved(cs []*conflict.Conflict) []*conflict.Conflict {
	var out []*conflict.Conflict
	for _, c := range cs {
		if c.Resolution != conflict.Unresolved {
			out = append(out, c)
		}
	}
	return out
}

func readValues(path string) (*valuetree.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return valuetree.ParseYAML(data)
}

func writeValues(path string, merged *valuetree.Value, conflicts []*conflict.Conflict) error {
	if merged == nil {
		return os.Remove(path)
	}
	data, err := valuetree.MarshalYAML(merged)
	if err != nil {
		return err
	}
	var unresolved []*conflict.Conflict
	for _, c := range conflicts {
		if c.Resolution == conflict.Unresolved {
			unresolved = append(unresolved, c)
		}
	}
	if len(unresolved) > 0 {
		header := []byte(conflict.Header(unresolved))
		data = append(header, data...)
	}
	return os.WriteFile(path, data, 0o644)
}

// mergeConverters runs the templated-text merger over every file
// under converters/: a remote-only file is copied in verbatim, a
// local-only file is kept as-is, and a file present on both sides is
// merged block by block.
func mergeConverters(req Request, report *conflict.Report) error {
	localDir := filepath.Join(req.ElementDir, converterDir)
	remoteDir := filepath.Join(req.RemoteDir, converterDir)

	localEntries, err := readDirNames(localDir)
	if err != nil {
		return err
	}
	remoteEntries, err := readDirNames(remoteDir)
	if err != nil {
		return err
	}

	for name := range remoteEntries {
		if localEntries[name] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(remoteDir, name))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(localDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(localDir, name), data, 0o644); err != nil {
			return err
		}
	}

	for name := range localEntries {
		if !remoteEntries[name] {
			continue // local-only converter, keep as-is
		}
		localPath := filepath.Join(localDir, name)
		local, err := os.ReadFile(localPath)
		if err != nil {
			return err
		}
		remote, err := os.ReadFile(filepath.Join(remoteDir, name))
		if err != nil {
			return err
		}
		var base string
		if req.BaseDir != "" {
			if b, err := os.ReadFile(filepath.Join(req.BaseDir, converterDir, name)); err == nil {
				base = string(b)
			}
		}
		merged, conflicts := templatemerge.Merge(base, string(local), string(remote))
		relpath := filepath.Join(converterDir, name)
		for _, c := range conflicts {
			report.Add(relpath, c)
		}
		if err := os.WriteFile(localPath, []byte(merged), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func readDirNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = true
		}
	}
	return names, nil
}

// transcribe copies Chart.yaml from remote except that the top-level
// name stays local, and replaces templates/ and examples/ wholesale
// from remote — a contractual, non-three-way operation: see
// DESIGN.md's note on why this isn't modelled as a structmerge call.
func transcribe(req Request) error {
	if err := transcribeChart(req); err != nil {
		return err
	}
	for _, sub := range []string{templatesDir, examplesDir} {
		if err := replaceWholesale(filepath.Join(req.RemoteDir, sub), filepath.Join(req.ElementDir, sub)); err != nil {
			return err
		}
	}
	return nil
}

func transcribeChart(req Request) error {
	localPath := filepath.Join(req.ElementDir, chartFile)
	remotePath := filepath.Join(req.RemoteDir, chartFile)

	remote, err := readValues(remotePath)
	if err != nil {
		return err
	}
	if remote == nil {
		return nil // remote carries no Chart.yaml; nothing to transcribe
	}
	local, err := readValues(localPath)
	if err != nil {
		return err
	}
	if local != nil {
		if name, ok := local.Map.Get("name"); ok {
			remote.Map.Set("name", valuetree.Clone(name))
		}
	}
	data, err := valuetree.MarshalYAML(remote)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func replaceWholesale(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return os.RemoveAll(dst)
		}
		return err
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

// reapplyResolutions writes a Resolve collaborator's completed
// decisions back onto the values document (converters were already
// merged into their final block-by-block form and do not need a
// second pass: their only "resolution" is the literal marker already
// written by mergeConverters).
func reapplyResolutions(req Request, report *conflict.Report) error {
	cs, ok := report.Files[valuesFile]
	if !ok {
		return nil
	}
	localPath := filepath.Join(req.ElementDir, valuesFile)
	merged, err := readValues(localPath)
	if err != nil {
		return err
	}
	if merged == nil {
		return nil
	}
	if _, err := conflict.ApplyAll(merged, cs); err != nil {
		return err
	}
	return writeValues(localPath, merged, cs)
}

func persistConflicts(req Request, report *conflict.Report) error {
	if !report.HasUnresolved() {
		return nil
	}
	data, err := report.Marshal()
	if err != nil {
		return err
	}
	path := filepath.Join(req.ElementDir, conflictsRel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyResolvedReport writes a report resolved out of band (typically
// by a standalone "resolve" command operating on a previously
// persisted conflicts.yaml, rather than a fresh Run) back onto
// elementDir/values.yaml, and removes the persisted conflicts file
// once nothing in it remains unresolved.
func ApplyResolvedReport(elementDir string, report *conflict.Report) error {
	req := Request{ElementDir: elementDir}
	if err := reapplyResolutions(req, report); err != nil {
		return err
	}
	if err := persistConflicts(req, report); err != nil {
		return err
	}
	if report.HasUnresolved() {
		return nil
	}
	path := filepath.Join(elementDir, conflictsRel)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func refreshSnapshot(elementDir, version string, now time.Time) error {
	snap, err := snapshot.CaptureBaseline(elementDir, version, now.Unix())
	if err != nil {
		return err
	}
	return snapshot.Persist(snap, filepath.Join(elementDir, snapshotPath))
}
