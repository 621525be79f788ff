// Copyright (C) 2024 SUSE LLC. All rights reserved.
// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/procfs"
)

// reopenHandle implements component C7: converting an O_PATH handle into a
// usable fd with the requested access mode, by re-opening it through
// /proc/thread-self/fd/$n. This is the only way to "upgrade" an O_PATH
// handle at all -- there is no fcntl that changes a file's access mode in
// place. Routing the reopen through internal/procfs (rather than a raw
// "/proc/self/fd/N" path string) is what stops a hostile /proc overmount
// from redirecting the open to a different inode (CVE-2019-19921).
func reopenHandle(handle *os.File, flags int) (*os.File, error) {
	if flags&unix.O_NOFOLLOW != 0 {
		stat, err := fd.Fstat(handle)
		if err != nil {
			return nil, fmt.Errorf("stat handle before reopen: %w", err)
		}
		if stat.Mode&unix.S_IFMT == unix.S_IFLNK {
			return nil, &os.PathError{Op: "reopen", Path: handle.Name(), Err: unix.ELOOP}
		}
	}

	proc, err := procfs.OpenProcRoot()
	if err != nil {
		return nil, fmt.Errorf("open procfs root: %w", err)
	}

	// We can't authenticate-open /proc/thread-self/fd/$n directly (it's the
	// magic-link itself, and following it is the whole point of a reopen),
	// so resolve the containing "fd" directory first and open the final
	// component with the caller's real flags, verifying no overmount sits
	// on top of the magic-link first.
	procFdDir, closer, err := proc.OpenThreadSelf("fd")
	if err != nil {
		return nil, fmt.Errorf("get safe /proc/thread-self/fd handle: %w", err)
	}
	defer procFdDir.Close() //nolint:errcheck
	defer closer()

	fdStr := strconv.Itoa(int(handle.Fd()))
	if err := procfs.CheckSubpathOvermount(proc.Root(), procFdDir, fdStr); err != nil {
		return nil, fmt.Errorf("check safety of /proc/thread-self/fd/%s magiclink: %w", fdStr, err)
	}

	// O_NOFOLLOW was already enforced by the symlink check above; passing it
	// on would make the open refuse to follow the magic-link itself.
	reopened, err := fd.Openat(procFdDir, fdStr, (flags&^unix.O_NOFOLLOW)|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ELOOP) {
			return nil, &os.PathError{Op: "reopen", Path: handle.Name(), Err: unix.ELOOP}
		}
		return nil, fmt.Errorf("reopen fd %d: %w", handle.Fd(), err)
	}
	return reopened, nil
}
