// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads policystack's own settings from a layered TOML
// stack: a system-wide file, a per-user file, and CLI overrides, each
// overwriting the previous where it sets a non-zero value.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const systemConfigEnv = "POLICYSTACK_CONFIG_SYSTEM"

// Resolver selects which collaborator transport backs the Resolve
// step when more than one is configured.
type Resolver string

const (
	ResolverTerminal Resolver = "terminal"
	ResolverHTTP     Resolver = "http"
)

// Config is policystack's own settings, independent of any one
// element being upgraded.
type Config struct {
	DefaultRepository string   `toml:"default_repository,omitempty"`
	BackupRetention   int      `toml:"backup_retention,omitzero"`
	ResolverTransport Resolver `toml:"resolver_transport,omitempty"`
	ResolverAddr      string   `toml:"resolver_addr,omitempty"`
}

func overwriteString(a, b string) string {
	if b != "" {
		return b
	}
	return a
}

// Overwrite applies o's explicitly-set fields onto c, in place.
func (c *Config) Overwrite(o *Config) {
	c.DefaultRepository = overwriteString(c.DefaultRepository, o.DefaultRepository)
	if o.BackupRetention > 0 {
		c.BackupRetention = o.BackupRetention
	}
	if o.ResolverTransport != "" {
		c.ResolverTransport = o.ResolverTransport
	}
	c.ResolverAddr = overwriteString(c.ResolverAddr, o.ResolverAddr)
}

func systemConfigPath() string {
	if p, ok := os.LookupEnv(systemConfigEnv); ok {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	prefix := filepath.Dir(exe)
	if filepath.Base(prefix) == "bin" {
		prefix = filepath.Dir(prefix)
	}
	return filepath.Join(prefix, "etc", "policystack.toml")
}

// LoadSystem reads the system-wide config file, if any.
func LoadSystem() (*Config, error) {
	path := systemConfigPath()
	if path == "" {
		return nil, os.ErrNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadUser reads ~/.policystack.toml, returning a zero Config if
// absent.
func LoadUser() (*Config, error) {
	var cfg Config
	home, err := os.UserHomeDir()
	if err != nil {
		return &cfg, nil
	}
	path := filepath.Join(home, ".policystack.toml")
	if _, err := os.Stat(path); err != nil {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Defaults returns the built-in baseline applied before any file is
// loaded.
func Defaults() *Config {
	return &Config{
		BackupRetention:   3,
		ResolverTransport: ResolverTerminal,
	}
}

// Load resolves the full layered config: built-in defaults,
// overwritten by the system file, overwritten by the user file,
// overwritten by cliOverrides (which may be nil).
func Load(cliOverrides *Config) (*Config, error) {
	cfg := Defaults()

	sc, err := LoadSystem()
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if sc != nil {
		cfg.Overwrite(sc)
	}

	uc, err := LoadUser()
	if err != nil {
		return nil, err
	}
	cfg.Overwrite(uc)

	if cliOverrides != nil {
		cfg.Overwrite(cliOverrides)
	}
	return cfg, nil
}
