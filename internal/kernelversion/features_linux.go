// Copyright (C) 2025-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package kernelversion

import "github.com/pathguard/pathguard/internal/gocompat"

// Minimum kernel versions for the syscalls pathguard depends on (see
// EXTERNAL INTERFACES in the design doc). These are used to skip a doomed
// syscall attempt (and its ENOSYS round trip) when we already know the
// running kernel can't support it.
var (
	minOpenat2         = KernelVersion{5, 6}
	minNewMountAPI     = KernelVersion{5, 2}
	minStatxMountID    = KernelVersion{5, 8}
	minStatxMountIDU   = KernelVersion{6, 8}
	minRenameat2       = KernelVersion{3, 15}
	minSubsetPidOption = KernelVersion{5, 8}
)

// HasOpenat2 reports whether the running kernel is new enough to support
// openat2(2). A false result is definitive; a true result is only a
// best-effort hint and callers must still handle ENOSYS.
var HasOpenat2 = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minOpenat2)
	return err == nil && ok
})

// HasNewMountAPI reports whether fsopen/fsmount/fsconfig/open_tree are
// likely available.
var HasNewMountAPI = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minNewMountAPI)
	return err == nil && ok
})

// HasStatxMountID reports whether statx(STATX_MNT_ID) is likely available.
var HasStatxMountID = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minStatxMountID)
	return err == nil && ok
})

// HasStatxMountIDUnique reports whether statx(STATX_MNT_ID_UNIQUE) is likely
// available, which makes the mount-id oracle immune to id reuse.
var HasStatxMountIDUnique = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minStatxMountIDU)
	return err == nil && ok
})

// HasSubsetPid reports whether "subset=pid" is a likely-supported procfs
// mount option.
var HasSubsetPid = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minSubsetPidOption)
	return err == nil && ok
})

// HasRenameat2 reports whether renameat2(2) is likely available.
var HasRenameat2 = gocompat.SyncOnceValue(func() bool {
	ok, err := GreaterEqualThan(minRenameat2)
	return err == nil && ok
})
