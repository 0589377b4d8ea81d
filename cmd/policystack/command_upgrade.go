// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/policystack/policystack/internal/apply"
	"github.com/policystack/policystack/internal/config"
	"github.com/policystack/policystack/internal/policy"
	"github.com/policystack/policystack/internal/resolver/httpresolver"
	"github.com/policystack/policystack/internal/resolver/terminalresolver"
	"github.com/policystack/policystack/internal/source"
)

// Upgrade fetches a template's from/to versions from a bucket,
// optionally consults an upgrade policy oracle, and runs the Apply
// Stage against an installed element in place.
type Upgrade struct {
	Element  string `arg:"" type:"existingdir" help:"Path to the installed element directory"`
	Template string `required:"" help:"Template the element was generated from"`
	From     string `required:"" name:"from" help:"Version the element was last synced to"`
	To       string `required:"" name:"to" help:"Target version to upgrade to"`

	Repository string `help:"Logical repository namespace within the bucket (overrides the configured default)"`
	Bucket     string `required:"" help:"S3 (or S3-compatible) bucket template versions are stored in"`
	Region     string `help:"Bucket region"`
	Endpoint   string `help:"S3-compatible endpoint; leave empty to use AWS"`

	PolicyDSN string `name:"policy-dsn" help:"MySQL DSN for the upgrade policy oracle; skipped if empty"`
	Force     bool   `help:"Proceed even if the upgrade policy oracle refuses the transition"`
}

func (c *Upgrade) Run(g *Globals) error {
	ctx := context.Background()

	cfg, err := config.Load(&config.Config{
		DefaultRepository: c.Repository,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bar := NewProgressBar(3, g.Verbose)

	if c.PolicyDSN != "" {
		if err := c.checkPolicy(ctx); err != nil {
			return err
		}
	}

	bar.Step("fetch base version " + c.From)
	src, err := source.New(ctx, source.Config{
		Bucket:       c.Bucket,
		Region:       c.Region,
		Endpoint:     c.Endpoint,
		UsePathStyle: c.Endpoint != "",
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Bucket, err)
	}
	baseDir, cleanupBase, err := src.Fetch(ctx, c.Template, c.From, cfg.DefaultRepository)
	if err != nil {
		return fmt.Errorf("fetch %s@%s: %w", c.Template, c.From, err)
	}
	defer cleanupBase()

	bar.Step("fetch target version " + c.To)
	remoteDir, cleanupRemote, err := src.Fetch(ctx, c.Template, c.To, cfg.DefaultRepository)
	if err != nil {
		return fmt.Errorf("fetch %s@%s: %w", c.Template, c.To, err)
	}
	defer cleanupRemote()

	bar.Step("apply")
	req := apply.Request{
		ElementName: filepath.Base(c.Element),
		ElementDir:  c.Element,
		RemoteDir:   remoteDir,
		BaseDir:     baseDir,
		FromVersion: c.From,
		ToVersion:   c.To,
		Resolve:     resolveCollaborator(cfg),
		Verbose:     g.Verbose,
	}
	result, err := apply.Run(ctx, req, time.Now())
	bar.Done()
	if err != nil {
		return err
	}

	if result.HasUnresolved {
		fmt.Fprintf(os.Stdout, "%s upgraded to %s with %d unresolved conflict(s); see %s\n",
			req.ElementName, c.To, result.Report.UnresolvedCount(), filepath.Join(c.Element, ".policystack/upgrade/conflicts.yaml"))
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s upgraded to %s\n", req.ElementName, c.To)
	return nil
}

func (c *Upgrade) checkPolicy(ctx context.Context) error {
	dsn, err := mysql.ParseDSN(c.PolicyDSN)
	if err != nil {
		return fmt.Errorf("parse policy dsn: %w", err)
	}
	oracle, err := policy.Open(dsn, c.Template)
	if err != nil {
		return fmt.Errorf("open policy oracle: %w", err)
	}
	defer oracle.Close()

	allowed, reason, err := oracle.Allowed(ctx, c.From, c.To)
	if err != nil {
		return fmt.Errorf("check upgrade policy: %w", err)
	}
	if allowed || c.Force {
		return nil
	}
	return &apply.ErrUpgradeRefused{From: c.From, To: c.To, Reason: reason}
}

// resolveCollaborator picks the Resolve transport configured for this
// installation: an interactive terminal prompt, or a remote review
// service reached over HTTP.
func resolveCollaborator(cfg *config.Config) apply.Resolve {
	if cfg.ResolverTransport == config.ResolverHTTP && cfg.ResolverAddr != "" {
		secret := []byte(os.Getenv("POLICYSTACK_RESOLVER_SECRET"))
		return httpresolver.NewClient(cfg.ResolverAddr, secret).Resolve
	}
	return terminalresolver.New(os.Stdin, os.Stdout).Resolve
}
