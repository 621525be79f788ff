// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"os"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/procfs"
)

// ProcBase names which base directory a [ProcfsHandle] lookup is relative
// to: the procfs root itself, /proc/self, /proc/thread-self, or /proc/<pid>.
type ProcBase = procfs.ProcBase

// ProcPid builds a [ProcBase] naming /proc/<pid>. It fails for pid values
// the kernel could never assign (negative, or >= 2^31).
func ProcPid(pid uint32) (ProcBase, error) { return procfs.ProcPid(pid) }

var (
	// ProcRoot names /proc itself.
	ProcRoot = procfs.ProcRoot
	// ProcSelf names /proc/self.
	ProcSelf = procfs.ProcSelf
	// ProcThreadSelf names /proc/thread-self (or its pre-3.17 equivalent).
	ProcThreadSelf = procfs.ProcThreadSelf
)

// ProcfsHandle is a hardened handle onto /proc, immune to bind-mount and
// magic-link substitution attacks along the way. It is component C3,
// usable standalone by callers that need safe /proc access without going
// through a [Root] at all.
type ProcfsHandle struct {
	inner *procfs.Handle
	owned bool
}

// OpenProcfs returns a [ProcfsHandle]. When unmasked is false (the common
// case) the handle is backed by the process-global cached procfs mount,
// restricted to "subset=pid" where the kernel supports it; Close on it is a
// no-op. When unmasked is true, a freshly opened, uncached, full (non
// subset=pid) procfs handle is returned instead, for the rare lookup that
// needs a subpath outside /proc/<pid> (e.g. /proc/mounts); the caller owns
// it and must Close it.
func OpenProcfs(unmasked bool) (*ProcfsHandle, error) {
	if !unmasked {
		h, err := procfs.OpenProcRoot()
		if err != nil {
			return nil, classify("open_procfs", err)
		}
		return &ProcfsHandle{inner: h, owned: false}, nil
	}
	h, err := procfs.OpenUnsafeProcRoot()
	if err != nil {
		return nil, classify("open_procfs", err)
	}
	return &ProcfsHandle{inner: h, owned: true}, nil
}

// Close releases the handle. A safe no-op for a handle obtained with
// unmasked=false.
func (p *ProcfsHandle) Close() error {
	if !p.owned {
		return nil
	}
	return p.inner.Close()
}

// Open resolves subpath relative to base and returns it opened with flags.
// Only O_RDONLY, O_WRONLY, O_RDWR, O_NOFOLLOW, O_DIRECTORY and O_CLOEXEC
// are meaningful here; the lookup itself is always O_PATH-mediated and
// overmount-checked before flags are applied via reopen.
func (p *ProcfsHandle) Open(base ProcBase, subpath string, flags int) (*os.File, error) {
	handle, closer, err := p.inner.Open(base, subpath)
	if err != nil {
		return nil, classify("procfs_open", err)
	}
	defer handle.Close() //nolint:errcheck
	defer closer()

	real, err := reopenHandle(handle, flags)
	if err != nil {
		return nil, classify("procfs_open", err)
	}
	return real, nil
}

// Readlink reads the symlink target of base/subpath (e.g. base=ProcSelf,
// subpath="exe" or "fd/3"), after verifying the lookup didn't cross an
// overmount.
func (p *ProcfsHandle) Readlink(base ProcBase, subpath string) (string, error) {
	f, closer, err := p.inner.Open(base, subpath)
	if err != nil {
		return "", classify("procfs_readlink", err)
	}
	defer f.Close() //nolint:errcheck
	defer closer()

	target, err := fd.Readlinkat(f, "")
	if err != nil {
		return "", classify("procfs_readlink", err)
	}
	return target, nil
}
