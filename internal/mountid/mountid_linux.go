// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package mountid implements the mount-id oracle (component C2): a way to
// get an opaque identifier for the mount object hosting a given fd, used to
// detect bind-mount attacks during path resolution. It never returns a
// human-meaningful value -- only equality between two ids taken close in
// time is meaningful.
package mountid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/kernelversion"
)

// ID is an opaque mount identifier. Only use it for equality comparisons
// against another ID obtained close in time -- it is not guaranteed unique
// over the process lifetime unless Unique is also true.
type ID struct {
	val uint64
	// Unique records whether val came from STATX_MNT_ID_UNIQUE. If false,
	// the kernel may have reused this id for an unrelated, since-unmounted
	// filesystem, and callers that need to fail closed on ambiguity should
	// check this.
	Unique bool
}

// Equal reports whether two IDs refer to the same mount object. Two
// non-unique IDs that compare equal are only "likely" the same mount --
// see [ID.Unique].
func (id ID) Equal(other ID) bool { return id.val == other.val }

// FdinfoReader reads the fdinfo lines for the fd numbered n. It is supplied
// by callers that already have a safe procfs handle open -- see the
// fdinfo fallback tier of [Get]. Passing a nil
// reader (or leaving the fdinfo tier unavailable) is fine: [Get] simply
// skips that tier, matching the spec's bootstrap-time behavior where no
// procfs handle exists yet.
type FdinfoReader func(n int) (string, error)

const (
	statxMntIDUnique = 0x00004000 // STATX_MNT_ID_UNIQUE
	statxMntID       = 0x00001000 // STATX_MNT_ID
)

// Get computes the mount id of the mount hosting dir/path, using the
// preference chain from the design doc: STATX_MNT_ID_UNIQUE, then
// STATX_MNT_ID, then (if fdinfo is non-nil) the "mnt_id:" line of the
// fd's fdinfo text as returned by fdinfo.
func Get(dir fd.Fd, path string, fdinfo FdinfoReader) (ID, error) {
	if kernelversion.HasStatxMountIDUnique() {
		if stx, err := fd.Statx(dir, path, unix.AT_EMPTY_PATH|unix.AT_SYMLINK_NOFOLLOW, statxMntIDUnique); err == nil {
			if stx.Mask&statxMntIDUnique != 0 {
				return ID{val: stx.Mnt_id, Unique: true}, nil
			}
		}
	}
	if kernelversion.HasStatxMountID() {
		if stx, err := fd.Statx(dir, path, unix.AT_EMPTY_PATH|unix.AT_SYMLINK_NOFOLLOW, statxMntID); err == nil {
			if stx.Mask&statxMntID != 0 {
				return ID{val: stx.Mnt_id, Unique: false}, nil
			}
		}
	}
	if fdinfo == nil {
		return ID{}, fmt.Errorf("get mount id for %s/%s: %w (no fdinfo fallback available)", dir.Name(), path, errNoMountID)
	}
	return getFromFdinfo(dir, path, fdinfo)
}

var errNoMountID = errors.New("could not determine mount id")

// getFromFdinfo opens dir/path (if path is non-empty) with O_PATH and parses
// the "mnt_id:" line out of its fdinfo. This is the last-resort fallback for
// kernels old enough to lack both statx tiers.
func getFromFdinfo(dir fd.Fd, path string, fdinfo FdinfoReader) (ID, error) {
	target := dir
	if path != "" {
		opened, err := fd.Openat(dir, path, unix.O_PATH|unix.O_NOFOLLOW, 0)
		if err != nil {
			return ID{}, fmt.Errorf("open %s/%s for fdinfo mount-id lookup: %w", dir.Name(), path, err)
		}
		defer opened.Close() //nolint:errcheck
		target = opened
	}
	contents, err := fdinfo(int(target.Fd()))
	if err != nil {
		return ID{}, fmt.Errorf("read fdinfo: %w", err)
	}
	for _, line := range strings.Split(contents, "\n") {
		rest, ok := strings.CutPrefix(line, "mnt_id:")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("%w: malformed mnt_id line %q", errNoMountID, line)
		}
		return ID{val: n, Unique: false}, nil
	}
	return ID{}, fmt.Errorf("%w: no mnt_id line in fdinfo", errNoMountID)
}
