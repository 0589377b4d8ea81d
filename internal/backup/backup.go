// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package backup implements the Apply Stage's backup/restore
// protocol: a plain directory copy at `.<name>.backup` used for fast
// rollback, plus a compressed tarball snapshot that survives a crash
// between the plain copy's removal and a restore.
package backup

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// DirName returns the plain backup directory name for an element.
func DirName(elementName string) string {
	return "." + elementName + ".backup"
}

// TarballPath returns the compressed tarball snapshot path for an
// element, rooted under upgradeDir (normally
// ".policystack/upgrade" inside the element's parent).
func TarballPath(upgradeDir, elementName string) string {
	return filepath.Join(upgradeDir, "."+elementName+".backup.tar.gz")
}

// Create copies src (the element directory) to dst (the backup
// directory) and additionally writes a compressed tarball of src to
// tarballPath. dst must not already exist: a leftover backup is a
// caller-level InvalidState condition, not something this package
// silently overwrites.
func Create(src, dst, tarballPath string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup: destination %s already exists", dst)
	}
	if err := copyDir(src, dst); err != nil {
		return fmt.Errorf("backup: copy %s to %s: %w", src, dst, err)
	}
	if err := writeTarball(src, tarballPath); err != nil {
		return fmt.Errorf("backup: tarball %s: %w", tarballPath, err)
	}
	return nil
}

// Restore replaces dst (the element directory, possibly partially
// written) with the contents of the backup directory src.
func Restore(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("backup: remove partial %s: %w", dst, err)
	}
	if err := copyDir(src, dst); err != nil {
		return fmt.Errorf("backup: restore %s to %s: %w", src, dst, err)
	}
	return nil
}

// RestoreFromTarball rebuilds dst from a compressed tarball snapshot,
// used when the plain backup directory itself did not survive a
// crash.
func RestoreFromTarball(tarballPath, dst string) error {
	f, err := os.Open(tarballPath)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", tarballPath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("backup: gzip reader: %w", err)
	}
	defer gz.Close()

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("backup: remove partial %s: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("backup: mkdir %s: %w", dst, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("backup: tar read: %w", err)
		}
		target := filepath.Join(dst, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
	return nil
}

// Commit deletes a completed backup (both the plain directory and its
// tarball, if present) on a successful apply.
func Commit(dir, tarballPath string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("backup: remove %s: %w", dir, err)
	}
	if tarballPath == "" {
		return nil
	}
	if err := os.Remove(tarballPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("backup: remove %s: %w", tarballPath, err)
	}
	return nil
}

func writeTarball(src, tarballPath string) error {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(tarballPath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.Open(path)
		if err != nil {
			return err
		}
		defer data.Close()
		_, err = io.Copy(tw, data)
		return err
	})
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
