// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package procfs implements component C3: a hardened handle onto /proc that
// is immune to overmount and magic-link confusion attacks, and the narrow
// set of /proc-backed primitives (fd reopening, self-path verification) that
// the rest of pathguard is built on.
//
// The host's /proc is treated as hostile in the same way an attacker-
// controlled root is: something can be bind-mounted over /proc/self,
// /proc/<pid>/fd, or any other subpath, and a naive lookup would silently
// follow it. We defend against this the same way the root resolver does --
// by preferring a private, attacker-unreachable procfs mount, and by
// checking mount identity on every subpath we actually use.
package procfs

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/assert"
	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/gocompat"
	"github.com/pathguard/pathguard/internal/kernelversion"
	"github.com/pathguard/pathguard/internal/mountid"
)

// Handle is an authenticated handle onto a procfs instance. Zero value is
// not usable -- obtain one from [OpenProcRoot] or [OpenUnsafeProcRoot].
type Handle struct {
	inner fd.Fd
	// isSubset records whether inner was mounted with "subset=pid", which
	// hides everything except /proc/<pid> trees (no /proc/sys, /proc/kmsg,
	// etc). A subset=pid mount is preferable because there is simply less
	// surface for an attacker to have pre-positioned something hostile on.
	isSubset bool
}

// Close releases the underlying procfs handle. Calling Close on the
// process-global cached handle returned by [OpenProcRoot] is a safe no-op.
func (proc *Handle) Close() error {
	if proc == nil || proc.inner == nil {
		return nil
	}
	return proc.inner.Close()
}

// Root returns the underlying procfs root fd, for callers (like the reopen
// path in the top-level package) that need to pass it to
// [CheckSubpathOvermount] themselves.
func (proc *Handle) Root() fd.Fd {
	return proc.inner
}

func newHandle(inner fd.Fd, isSubset bool) *Handle {
	return &Handle{inner: inner, isSubset: isSubset}
}

const procSuperMagic = 0x9fa0 // PROC_SUPER_MAGIC

// verifyProcRoot checks that h actually refers to a procfs instance, and not
// something an attacker substituted via a race on the mount namespace.
func verifyProcRoot(h fd.Fd) error {
	statfs, err := fd.Fstatfs(h)
	if err != nil {
		return fmt.Errorf("verify proc root: %w", err)
	}
	if int64(statfs.Type) != procSuperMagic {
		return fmt.Errorf("%w: %s has unexpected filesystem type %#x", errUnsafeProcfs, h.Name(), statfs.Type)
	}
	return nil
}

var errUnsafeProcfs = errors.New("detected possibly unsafe procfs")

// newPrivateProcMount creates a brand-new, detached procfs mount using the
// fsopen/fsconfig/fsmount API, optionally restricted to "subset=pid". This
// is the strongest defense we have: the resulting mount is not reachable
// through any path an attacker could have pre-positioned a bind-mount over,
// because it was never attached to the filesystem tree at all.
func newPrivateProcMount(subset bool) (*os.File, error) {
	ctx, err := fd.Fsopen("proc", unix.FSOPEN_CLOEXEC)
	if err != nil {
		return nil, err
	}
	defer ctx.Close() //nolint:errcheck

	if subset {
		if err := fd.FsconfigSetString(ctx, "subset", "pid"); err != nil {
			return nil, err
		}
	}
	if err := fd.FsconfigCreate(ctx); err != nil {
		return nil, err
	}
	mount, err := fd.Fsmount(ctx, unix.FSMOUNT_CLOEXEC, unix.MS_RDONLY|unix.MS_NOSUID|unix.MS_NOEXEC)
	if err != nil {
		return nil, err
	}
	return mount, nil
}

// clonePrivateProcMount detaches a private clone of the host's existing
// /proc mount via open_tree(OPEN_TREE_CLONE). This is weaker than
// [newPrivateProcMount] (the clone inherits whatever is already visible
// through /proc, including any overmounts an attacker placed before we
// cloned it). It is tried whenever the new-mount tier is unavailable or
// fails; open_tree itself belongs to the same (5.2+) mount API.
func clonePrivateProcMount() (*os.File, error) {
	return fd.OpenTree(nil, "/proc", unix.OPEN_TREE_CLONE|unix.OPEN_TREE_CLOEXEC|unix.AT_RECURSIVE)
}

// unsafeHostProcRoot opens the host's /proc directly, with no isolation at
// all. Only used as the last-resort fallback of [privateProcRoot], whether
// or not the caller asked for a subset=pid handle.
func unsafeHostProcRoot() (*os.File, error) {
	return fd.Openat(nil, "/proc", unix.O_PATH|unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
}

// privateProcRoot builds the best procfs handle we can manage, preferring
// (in order) a brand-new private mount, then a detached clone of the host
// mount, then the raw host /proc. cacheable reports whether the returned
// Handle came from the strongest (new-mount, subset=pid) tier and is
// therefore safe to install into the process-global cache -- the clone and
// host-fallback tiers must never be cached, since a fresh lookup gets a
// chance to retry the strong tier later and caching a raw/unmasked handle
// would leak it process-wide for the lifetime of the program.
func privateProcRoot(subset bool) (h *Handle, cacheable bool, err error) {
	if kernelversion.HasNewMountAPI() {
		if mount, merr := newPrivateProcMount(subset); merr == nil {
			if verr := verifyProcRoot(mount); verr == nil {
				return newHandle(mount, subset), subset, nil
			}
			mount.Close() //nolint:errcheck
		}
	}
	if clone, cerr := clonePrivateProcMount(); cerr == nil {
		if verr := verifyProcRoot(clone); verr == nil {
			// A cloned mount can't be configured with subset=pid after the
			// fact, so report isSubset=false regardless of what the caller
			// asked for -- callers must not rely on subset semantics here.
			return newHandle(clone, false), false, nil
		}
		clone.Close() //nolint:errcheck
	}
	host, herr := unsafeHostProcRoot()
	if herr != nil {
		return nil, false, fmt.Errorf("open procfs: %w", herr)
	}
	if verr := verifyProcRoot(host); verr != nil {
		host.Close() //nolint:errcheck
		return nil, false, verr
	}
	return newHandle(host, false), false, nil
}

var cachedProcRoot = gocompat.SyncOnceValues(func() (*Handle, error) {
	h, cacheable, err := privateProcRoot(true)
	if err != nil || !cacheable {
		// The strong tier isn't available on this kernel -- don't let
		// SyncOnceValues remember a raw, unmasked /proc handle forever.
		// Every future OpenProcRoot call falls through to the uncached path
		// below instead of ever populating this slot.
		return nil, errProcRootNotCacheable
	}
	// Disarm Close on the cached copy so OpenProcRoot callers can't tear
	// down the process-global handle from under everyone else.
	return newHandle(fd.NopCloser(h.inner), h.isSubset), nil
})

var errProcRootNotCacheable = errors.New("procfs: strong private mount unavailable, not caching")

// OpenProcRoot returns a procfs handle, preferring a private subset=pid
// mount. When that strong tier is available, the same process-global handle
// is returned on every call and must not be closed by the caller -- Close on
// it is a no-op, matching its shared-ownership semantics. When the strong
// tier isn't available (older kernel, fsopen/fsconfig failure), a fresh,
// caller-owned handle is returned instead of caching the weaker fallback.
func OpenProcRoot() (*Handle, error) {
	h, err := cachedProcRoot()
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, errProcRootNotCacheable) {
		return nil, err
	}
	h, _, err = privateProcRoot(true)
	return h, err
}

// OpenUnsafeProcRoot returns a freshly-opened, uncached, non-subset procfs
// handle, for the rare lookup that needs something outside /proc/<pid> (for
// example /proc/mounts-style globals). The caller owns the returned Handle
// and must Close it.
func OpenUnsafeProcRoot() (*Handle, error) {
	h, _, err := privateProcRoot(false)
	return h, err
}

var hasProcThreadSelf = gocompat.SyncOnceValue(func() bool {
	proc, err := OpenProcRoot()
	if err != nil {
		return false
	}
	return fd.Faccessat(proc.inner, "thread-self", unix.F_OK, unix.AT_SYMLINK_NOFOLLOW) == nil
})

// ThreadSelfCloser must be called once the caller is done with an fd
// obtained via [Handle.OpenThreadSelf], after which it is no longer safe to
// migrate the calling goroutine to a different OS thread. On kernels with
// native /proc/thread-self support this is a no-op.
type ThreadSelfCloser func()

func noopCloser() {}

// prefix returns the path (relative to the procfs root) that base resolves
// to, plus -- for [ProcThreadSelf] on kernels lacking /proc/thread-self -- a
// closer the caller must invoke once done using the returned path.
func (proc *Handle) prefix(base ProcBase) (string, ThreadSelfCloser) {
	switch base.kind {
	case kindRoot:
		return ".", noopCloser
	case kindSelf:
		return "self", noopCloser
	case kindPid:
		return strconv.FormatUint(uint64(base.pid), 10), noopCloser
	case kindThreadSelf:
		if hasProcThreadSelf() {
			return "thread-self", noopCloser
		}
		// Fallback for kernels older than Linux 3.17: pin the calling
		// goroutine to its current OS thread and address it by tid under
		// /proc/self/task/. The caller must not let the goroutine migrate
		// threads until the returned closer runs.
		runtime.LockOSThread()
		tid := unix.Gettid()
		return fmt.Sprintf("self/task/%d", tid), runtime.UnlockOSThread
	default:
		assert.Assertf(false, "invalid ProcBase kind %d", base.kind)
		return "", noopCloser
	}
}

// open resolves base/subpath against proc and returns an O_PATH handle to
// it, verified to not have crossed an overmount along the way.
func (proc *Handle) open(base ProcBase, subpath string) (*os.File, ThreadSelfCloser, error) {
	dirPrefix, closer := proc.prefix(base)
	fullPath := dirPrefix
	if subpath != "" {
		fullPath = dirPrefix + "/" + subpath
	}
	handle, err := fd.Openat(proc.inner, fullPath, unix.O_PATH|unix.O_NOFOLLOW, 0)
	if err != nil {
		closer()
		return nil, noopCloser, fmt.Errorf("open %s in procfs: %w", fullPath, err)
	}
	if err := CheckSubpathOvermount(proc.inner, handle, ""); err != nil {
		handle.Close() //nolint:errcheck
		closer()
		return nil, noopCloser, err
	}
	return handle, closer, nil
}

// Open resolves base/subpath and returns an O_PATH handle to it. For
// [ProcThreadSelf] on old kernels the returned closer must be invoked once
// the caller is done with the handle; for every other base it is a no-op
// that is always safe to call (or ignore).
func (proc *Handle) Open(base ProcBase, subpath string) (*os.File, ThreadSelfCloser, error) {
	return proc.open(base, subpath)
}

// OpenSelf is shorthand for Open(ProcSelf, subpath) with no thread-pinning
// concerns.
func (proc *Handle) OpenSelf(subpath string) (*os.File, error) {
	h, closer, err := proc.open(ProcSelf, subpath)
	closer()
	return h, err
}

// OpenThreadSelf is shorthand for Open(ProcThreadSelf, subpath). Prefer this
// over OpenSelf whenever subpath names something thread-specific (like
// "fd/N" during an fd reopen), since the calling goroutine's OS thread --
// not its goroutine -- is what /proc/self would otherwise resolve through.
func (proc *Handle) OpenThreadSelf(subpath string) (*os.File, ThreadSelfCloser, error) {
	return proc.open(ProcThreadSelf, subpath)
}

// OpenRoot is shorthand for Open(ProcRoot, subpath).
func (proc *Handle) OpenRoot(subpath string) (*os.File, error) {
	h, closer, err := proc.open(ProcRoot, subpath)
	closer()
	return h, err
}

// OpenPid is shorthand for Open(ProcPid(pid), subpath).
func (proc *Handle) OpenPid(pid uint32, subpath string) (*os.File, error) {
	base, err := ProcPid(pid)
	if err != nil {
		return nil, err
	}
	h, closer, err := proc.open(base, subpath)
	closer()
	return h, err
}

// fdinfoReaderFor returns a mountid.FdinfoReader that reads /proc/self/fdinfo
// through root, the same trusted procfs handle CheckSubpathOvermount was
// called with. This breaks the circular dependency between this package and
// internal/mountid: mountid never imports procfs, it just accepts a reader
// function from whoever already has a procfs handle in hand.
func fdinfoReaderFor(root fd.Fd) mountid.FdinfoReader {
	return func(n int) (string, error) {
		f, err := fd.Openat(root, "self/fdinfo/"+strconv.Itoa(n), unix.O_RDONLY|unix.O_NOFOLLOW, 0)
		if err != nil {
			return "", err
		}
		defer f.Close() //nolint:errcheck
		buf := make([]byte, 4096)
		n2, err := f.Read(buf)
		if err != nil && n2 == 0 {
			return "", err
		}
		return string(buf[:n2]), nil
	}
}

// FdinfoReader returns a [mountid.FdinfoReader] backed by the process-global
// cached procfs handle, for resolvers (like internal/opath) that want the
// fdinfo fallback tier of the mount-id oracle without bootstrapping their
// own procfs handle.
func FdinfoReader() (mountid.FdinfoReader, error) {
	proc, err := OpenProcRoot()
	if err != nil {
		return nil, err
	}
	return fdinfoReaderFor(proc.inner), nil
}

// CheckSubpathOvermount verifies that dir/path (path may be empty, meaning
// "dir itself") lives on the same mount as root. A mismatch means something
// got bind-mounted on top of a procfs subpath we were about to trust --
// e.g. /proc/self/fd being shadowed -- and resolution must abort.
func CheckSubpathOvermount(root fd.Fd, dir fd.Fd, path string) error {
	rootID, err := mountid.Get(root, "", fdinfoReaderFor(root))
	if err != nil {
		return fmt.Errorf("get procfs root mount id: %w", err)
	}
	dirID, err := mountid.Get(dir, path, fdinfoReaderFor(root))
	if err != nil {
		return fmt.Errorf("get mount id of %s/%s: %w", dir.Name(), path, err)
	}
	if !rootID.Equal(dirID) {
		return fmt.Errorf("%w: %s/%s is on a different mount than the procfs root", errUnsafeProcfs, dir.Name(), path)
	}
	return nil
}

// readlink reads the symlink target of base/subpath, after verifying it
// hasn't been overmounted.
func (proc *Handle) readlink(base ProcBase, subpath string) (string, error) {
	handle, closer, err := proc.open(base, subpath)
	if err != nil {
		return "", err
	}
	defer handle.Close() //nolint:errcheck
	defer closer()
	return fd.Readlinkat(handle, "")
}

// ProcSelfFdReadlink returns the path that the open fd f currently refers
// to, as reported by readlink("/proc/thread-self/fd/$n"). The result is
// informational -- it must never be treated as a safe, re-resolvable path,
// only compared against an expected value (see [CheckProcSelfFdPath]).
func ProcSelfFdReadlink(f fd.Fd) (string, error) {
	proc, err := OpenProcRoot()
	if err != nil {
		return "", err
	}
	target, closer, err := proc.open(ProcThreadSelf, "fd/"+strconv.Itoa(int(f.Fd())))
	if err != nil {
		return "", err
	}
	defer target.Close() //nolint:errcheck
	defer closer()
	return fd.Readlinkat(target, "")
}

// CheckProcSelfFdPath verifies that f's current path (as reported by
// /proc/thread-self/fd) is still expectedPath, and that the kernel hasn't
// tagged it "(deleted)". This is the standard way to confirm that a handle
// obtained earlier hasn't been invalidated by a concurrent rename/unlink
// between then and now.
func CheckProcSelfFdPath(f fd.Fd, expectedPath string) error {
	actual, err := ProcSelfFdReadlink(f)
	if err != nil {
		return err
	}
	if actual != expectedPath {
		return fmt.Errorf("%w: expected path %q but got %q", errUnsafeProcfs, expectedPath, actual)
	}
	return nil
}

// IsDeadInode is a re-export of fd.IsDeadInode for callers that only import
// this package.
func IsDeadInode(f fd.Fd) error {
	return fd.IsDeadInode(f)
}
