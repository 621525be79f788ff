// Copyright (C) 2024 SUSE LLC. All rights reserved.
// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package pathguard provides race-safe path resolution inside a designated
// root directory on Linux. Given an attacker-controlled subpath, [Root]
// resolves it to a handle guaranteed to stay within the root even under a
// concurrently hostile filesystem -- renames, symlink swaps, or bind-mount
// injections racing the resolution can never carry a result outside the
// root; they can only cause the operation to fail safely.
//
// Two interchangeable backends do the actual walking: internal/openat2res,
// a single openat2(RESOLVE_IN_ROOT) syscall on kernels that support it, and
// internal/opath, a userspace component-by-component walker used as a
// fallback when openat2 is unavailable, and always for MkdirAll's partial
// lookup and RemoveAll's lookup. Callers never choose between them
// directly -- Root picks the backend and falls back transparently.
package pathguard

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/openat2res"
	"github.com/pathguard/pathguard/internal/opath"
)

// Root owns a directory file descriptor (opened O_PATH|O_CLOEXEC|O_DIRECTORY)
// beyond which no resolution performed through it will ever escape. The
// zero value is not usable; obtain one via [OpenRoot] or [OpenRootFile].
type Root struct {
	inner *os.File
}

// OpenRoot opens path as a [Root]. path itself is resolved by the host
// kernel exactly like any other os.Open call -- pathguard's guarantees only
// begin at subpaths resolved *through* the returned Root.
func OpenRoot(path string) (*Root, error) {
	f, err := os.OpenFile(path, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return OpenRootFile(f)
}

// OpenRootFile builds a [Root] from an already-open file, taking a dup of
// f. The caller retains ownership of f and may close it immediately after
// this call returns.
func OpenRootFile(f *os.File) (*Root, error) {
	stat, err := fd.Fstat(f)
	if err != nil {
		return nil, fmt.Errorf("stat root candidate: %w", err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		return nil, fmt.Errorf("%w: root must be a directory", errInvalidMode)
	}
	dup, err := fd.Dup(f)
	if err != nil {
		return nil, fmt.Errorf("clone root fd: %w", err)
	}
	return &Root{inner: dup}, nil
}

// Clone returns a new Root sharing the same underlying directory (via dup),
// independently closable from the original.
func (r *Root) Clone() (*Root, error) {
	dup, err := fd.Dup(r.inner)
	if err != nil {
		return nil, fmt.Errorf("clone root: %w", err)
	}
	return &Root{inner: dup}, nil
}

// Close releases the Root's directory file descriptor. Handles previously
// obtained via Resolve are unaffected.
func (r *Root) Close() error {
	return r.inner.Close()
}

// resolve is the shared entry point for every operation that needs to turn
// a subpath into an O_PATH handle: try openat2(RESOLVE_IN_ROOT) first, fall
// back to the userspace walker whenever the kernel path can't service the
// request at all.
func (r *Root) resolve(unsafePath string, flags ResolverFlags) (*os.File, error) {
	handle, err := openat2res.Resolve(r.inner, unsafePath, flags.noFollowTrailing())
	if err == nil {
		return handle, nil
	}
	if !isOpenat2Fallback(err) {
		return nil, err
	}
	return opath.Resolve(r.inner, unsafePath, opath.Options{
		NoFollowTrailing: flags.noFollowTrailing(),
		NoXDev:           true,
	})
}

// partialLookup is MkdirAll's entry point for finding the deepest existing
// prefix: it always uses the userspace walker, since only that backend can
// report a deepest-existing-prefix instead of failing outright on ENOENT.
func (r *Root) partialLookup(unsafePath string) (*os.File, string, error) {
	return opath.PartialLookup(r.inner, unsafePath)
}

func isOpenat2Fallback(err error) bool {
	return errors.Is(err, openat2res.ErrNotSupported)
}

// Resolve resolves unsafePath within the root and returns a [Handle] to it.
// The returned Handle is an O_PATH reference -- use [Handle.Reopen] to get
// an fd usable for I/O.
func (r *Root) Resolve(unsafePath string, flags ResolverFlags) (*Handle, error) {
	f, err := r.resolve(unsafePath, flags)
	if err != nil {
		return nil, classifyAt("resolve", r.inner.Name(), unsafePath, err)
	}
	return &Handle{inner: f}, nil
}

// OpenSubpath resolves unsafePath and promotes the result directly to a
// usable fd opened with flags, combining resolve+reopen into a single call.
func (r *Root) OpenSubpath(unsafePath string, flags int) (*os.File, error) {
	noFollow := flags&unix.O_NOFOLLOW != 0
	h, err := r.resolve(unsafePath, boolToFlags(noFollow))
	if err != nil {
		return nil, classifyAt("open_subpath", r.inner.Name(), unsafePath, err)
	}
	defer h.Close() //nolint:errcheck
	real, err := reopenHandle(h, flags)
	if err != nil {
		return nil, classifyAt("open_subpath", r.inner.Name(), unsafePath, err)
	}
	return real, nil
}

func boolToFlags(noFollowTrailing bool) ResolverFlags {
	if noFollowTrailing {
		return NoFollowTrailing
	}
	return 0
}
