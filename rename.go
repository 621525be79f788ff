// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
)

// Rename moves (or, with [unix.RENAME_EXCHANGE], swaps) src and dst, both
// resolved independently and race-safely within r before the kernel-level
// renameat2 is issued. flags are passed through to renameat2 verbatim
// (RENAME_NOREPLACE, RENAME_EXCHANGE, RENAME_WHITEOUT).
//
// If src has a trailing slash the source must be a directory (ENOTDIR
// otherwise). If either src or dst has a trailing slash and flags requests
// RENAME_EXCHANGE, both sides must be directories.
func (r *Root) Rename(src, dst string, flags uint) error {
	srcParentPath, srcBase, srcTrailingSlash := splitSubpath(src)
	dstParentPath, dstBase, dstTrailingSlash := splitSubpath(dst)
	if err := validateBase(srcBase); err != nil {
		return classify("rename", fmt.Errorf("source: %w", err))
	}
	if err := validateBase(dstBase); err != nil {
		return classify("rename", fmt.Errorf("destination: %w", err))
	}

	srcParent, err := r.resolveParent(srcParentPath)
	if err != nil {
		return classify("rename", fmt.Errorf("resolve source parent: %w", err))
	}
	defer srcParent.Close() //nolint:errcheck

	dstParent, err := r.resolveParent(dstParentPath)
	if err != nil {
		return classify("rename", fmt.Errorf("resolve destination parent: %w", err))
	}
	defer dstParent.Close() //nolint:errcheck

	exchange := flags&unix.RENAME_EXCHANGE != 0
	if srcTrailingSlash || (exchange && dstTrailingSlash) {
		if err := requireDirEntry(srcParent, srcBase); err != nil {
			return classify("rename", fmt.Errorf("source %q: %w", src, err))
		}
	}
	if dstTrailingSlash || (exchange && srcTrailingSlash) {
		if err := requireDirEntry(dstParent, dstBase); err != nil {
			return classify("rename", fmt.Errorf("destination %q: %w", dst, err))
		}
	}

	return classify("rename", fd.Renameat2(srcParent, srcBase, dstParent, dstBase, flags))
}

// requireDirEntry fails with ENOTDIR unless name, looked up in dir without
// following a trailing symlink, names a directory.
func requireDirEntry(dir *os.File, name string) error {
	stat, err := fd.Fstatat(dir, name, unix.AT_SYMLINK_NOFOLLOW)
	if err != nil {
		return err
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		return &os.PathError{Op: "rename", Path: name, Err: unix.ENOTDIR}
	}
	return nil
}
