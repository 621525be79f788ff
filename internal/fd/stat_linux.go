// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fd

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fstat is a thin wrapper around fstat(2) against an already-open fd.
func Fstat(f Fd) (unix.Stat_t, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &stat); err != nil {
		return stat, &os.PathError{Op: "fstat", Path: f.Name(), Err: err}
	}
	return stat, nil
}

// Fstatfs is a thin wrapper around fstatfs(2) against an already-open fd.
func Fstatfs(f Fd) (unix.Statfs_t, error) {
	var statfs unix.Statfs_t
	if err := unix.Fstatfs(int(f.Fd()), &statfs); err != nil {
		return statfs, &os.PathError{Op: "fstatfs", Path: f.Name(), Err: err}
	}
	return statfs, nil
}

// Statx is a thin wrapper around statx(2). The caller supplies mask and gets
// back whatever the kernel actually populated in Stx.Mask -- callers must
// check that the bits they need were actually returned.
func Statx(dir Fd, path string, flags int, mask uint32) (unix.Statx_t, error) {
	dirFd, fullPath := prepareAt(dir, path)
	var stx unix.Statx_t
	if err := unix.Statx(dirFd, path, flags, int(mask), &stx); err != nil {
		return stx, &os.PathError{Op: "statx", Path: fullPath, Err: err}
	}
	return stx, nil
}

// IsDeadInode returns an error if the given file's link count has dropped to
// zero, which indicates that a concurrent attacker has unlinked the
// directory or file we are holding a handle to. Detecting this early avoids
// confusing ENOENT/ESTALE errors later in a resolution.
func IsDeadInode(file Fd) error {
	stat, err := Fstat(file)
	if err != nil {
		return err
	}
	if stat.Nlink == 0 {
		return &os.PathError{Op: "isDeadInode", Path: file.Name(), Err: unix.ENOENT}
	}
	return nil
}
