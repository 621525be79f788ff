// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package openat2res implements component C5: the kernel-assisted fast
// path for in-root resolution, a single openat2(2) call with
// RESOLVE_IN_ROOT|RESOLVE_NO_MAGICLINKS|RESOLVE_NO_XDEV. Callers fall back
// to internal/opath only when this package reports [ErrNotSupported]; every
// other error (including ENOENT, ELOOP and EXDEV) is final. Neither backend
// emulates fs.protected_symlinks.
package openat2res

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/kernelversion"
	"github.com/pathguard/pathguard/internal/resolveerr"
)

// ErrNotSupported is returned when the running kernel lacks openat2(2), or
// when RESOLVE_IN_ROOT is rejected outright (ancient io_uring-only backport
// situations); callers must fall back to internal/opath.
var ErrNotSupported = errors.New("openat2 resolution not supported")

// Resolve attempts to resolve unsafePath against root entirely in the
// kernel via RESOLVE_IN_ROOT. noFollowTrailing adds O_NOFOLLOW (not
// RESOLVE_NO_SYMLINKS, which would also forbid every intermediate symlink).
func Resolve(root fd.Fd, unsafePath string, noFollowTrailing bool) (*os.File, error) {
	if !kernelversion.HasOpenat2() {
		return nil, ErrNotSupported
	}

	flags := unix.O_PATH | unix.O_CLOEXEC
	if noFollowTrailing {
		flags |= unix.O_NOFOLLOW
	}
	how := &unix.OpenHow{
		Flags:   uint64(flags),
		Resolve: unix.RESOLVE_IN_ROOT | unix.RESOLVE_NO_MAGICLINKS | unix.RESOLVE_NO_XDEV,
	}

	handle, err := fd.Openat2(root, unsafePath, how)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EOPNOTSUPP) {
			return nil, fmt.Errorf("%w: %w", ErrNotSupported, err)
		}
		if errors.Is(err, unix.EXDEV) {
			return nil, fmt.Errorf("%w: %w", resolveerr.ErrPossibleBreakout, err)
		}
		return nil, err
	}
	return handle, nil
}
