// Copyright (C) 2024 SUSE LLC. All rights reserved.
// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package opath implements component C4: the userspace "opath" emulated
// walker. It resolves a path component-by-component using only O_PATH
// handles, verifying after every step that the walk hasn't been carried
// outside the intended root by a concurrent rename, symlink swap, or bind
// mount. This is the fallback used whenever openat2(RESOLVE_IN_ROOT) isn't
// available, and the only backend for partial lookups.
package opath

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/mountid"
	"github.com/pathguard/pathguard/internal/procfs"
)

// maxSymlinkLimit bounds the number of symlinks walked during a single
// resolution, matching the kernel's own MAXSYMLINKS -- not the more
// generous (and non-standard) limit some userspace reimplementations use.
const maxSymlinkLimit = 40

// Options tunes how [Walk] treats the final path component.
type Options struct {
	// NoFollowTrailing, if true, causes a trailing symlink to be returned
	// unresolved (as an O_PATH handle to the symlink itself) rather than
	// being followed. Intermediate components are always followed.
	NoFollowTrailing bool
	// NoXDev, if true (the zero value is false; every caller in this module
	// sets it), requires every directory entered during the walk to be on the same
	// mount as root. This is opath's emulation of RESOLVE_NO_XDEV.
	NoXDev bool
}

// walker holds the mutable state of a single resolution.
type walker struct {
	root       fd.Fd
	rootID     mountid.ID
	opts       Options
	fdinfo     mountid.FdinfoReader
	linksLeft  int
	currentDir *os.File
	currentLog string // logical path of currentDir, relative to root, always "/"-clean
}

func newWalker(root fd.Fd, opts Options) (*walker, error) {
	fdinfo, err := procfs.FdinfoReader()
	if err != nil {
		// The fdinfo fallback tier is a nice-to-have, not a hard
		// requirement -- modern kernels satisfy mount-id lookups purely via
		// statx. Proceed without it rather than failing every resolution on
		// kernels/containers where a private procfs mount can't be built.
		fdinfo = nil
	}
	rootID, err := mountid.Get(root, "", fdinfo)
	if err != nil {
		return nil, fmt.Errorf("get root mount id: %w", err)
	}
	currentDir, err := fd.Dup(root)
	if err != nil {
		return nil, fmt.Errorf("clone root fd: %w", err)
	}
	return &walker{
		root:       root,
		rootID:     rootID,
		opts:       opts,
		fdinfo:     fdinfo,
		linksLeft:  maxSymlinkLimit,
		currentDir: currentDir,
		currentLog: "/",
	}, nil
}

func (w *walker) close() {
	if w.currentDir != nil {
		w.currentDir.Close() //nolint:errcheck
	}
}

// checkMountID verifies dir is still on the same mount as root. Skipped when
// NoXDev is false, for callers that explicitly want to allow mount crossing
// (e.g. a diagnostic-only resolution).
func (w *walker) checkMountID(dir fd.Fd, logicalPath string) error {
	if !w.opts.NoXDev {
		return nil
	}
	id, err := mountid.Get(dir, "", w.fdinfo)
	if err != nil {
		return fmt.Errorf("get mount id of %q: %w", logicalPath, err)
	}
	if !id.Equal(w.rootID) {
		return fmt.Errorf("%w: %q is on a different mount than the root", errPossibleBreakout, logicalPath)
	}
	return nil
}

// jumpToRoot resets the walker's position back to root, used both for
// logical ".." past the top and for absolute symlink targets.
func (w *walker) jumpToRoot() error {
	rootClone, err := fd.Dup(w.root)
	if err != nil {
		return fmt.Errorf("clone root fd: %w", err)
	}
	w.close()
	w.currentDir = rootClone
	w.currentLog = "/"
	return nil
}

// Walk resolves unsafePath against root, component by component, never
// trusting any lexical shortcut. It returns a handle to the deepest
// component that exists plus whatever path remains unresolved -- if the
// whole path resolved, remaining is "".
//
// Callers that need the path to fully exist should use [Resolve] instead,
// which turns a non-empty remainder into an error.
func Walk(root fd.Fd, unsafePath string, opts Options) (_ *os.File, remaining string, Err error) {
	unsafePath = filepath.ToSlash(unsafePath)

	logicalRootPath, err := procfs.ProcSelfFdReadlink(root)
	if err != nil {
		return nil, "", fmt.Errorf("get real root path: %w", err)
	}

	w, err := newWalker(root, opts)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if Err != nil {
			w.close()
		}
	}()

	remainingPath := unsafePath
	for remainingPath != "" {
		oldRemainingPath := remainingPath

		var part string
		if i := strings.IndexByte(remainingPath, '/'); i == -1 {
			part, remainingPath = remainingPath, ""
		} else {
			part, remainingPath = remainingPath[:i], remainingPath[i+1:]
		}
		if part == "" {
			continue
		}

		isTrailing := remainingPath == ""
		nextLog := path.Join("/", w.currentLog, part)
		if nextLog == "/" {
			if err := w.jumpToRoot(); err != nil {
				return nil, "", err
			}
			continue
		}

		openFlags := unix.O_PATH | unix.O_NOFOLLOW
		nextDir, err := fd.Openat(w.currentDir, part, openFlags, 0)
		switch {
		case err == nil:
			stat, serr := fd.Fstat(nextDir)
			if serr != nil {
				nextDir.Close() //nolint:errcheck
				return nil, "", fmt.Errorf("stat component %q: %w", part, serr)
			}

			switch stat.Mode & unix.S_IFMT {
			case unix.S_IFDIR:
				if err := w.checkMountID(nextDir, nextLog); err != nil {
					nextDir.Close() //nolint:errcheck
					return nil, "", err
				}
				w.close()
				w.currentDir = nextDir
				w.currentLog = nextLog

				if part == ".." {
					if err := procfs.CheckProcSelfFdPath(root, logicalRootPath); err != nil {
						return nil, "", fmt.Errorf("root path moved during lookup: %w", err)
					}
					if err := procfs.CheckProcSelfFdPath(w.currentDir, logicalRootPath+nextLog); err != nil {
						return nil, "", fmt.Errorf("walking into %q had unexpected result: %w", part, err)
					}
				}

			case unix.S_IFLNK:
				nextDir.Close() //nolint:errcheck

				if isTrailing && opts.NoFollowTrailing {
					// Return an O_PATH handle to the symlink itself, without
					// following it -- the caller explicitly asked not to.
					linkHandle, err := fd.Openat(w.currentDir, part, unix.O_PATH|unix.O_NOFOLLOW, 0)
					if err != nil {
						return nil, "", err
					}
					return linkHandle, "", nil
				}

				linkDest, err := fd.Readlinkat(w.currentDir, part)
				if err != nil {
					if errors.Is(err, unix.EINVAL) {
						err = fmt.Errorf("%w: path component %q is invalid: %w", errPossibleAttack, part, unix.ENOTDIR)
					}
					return nil, "", err
				}

				w.linksLeft--
				if w.linksLeft < 0 {
					return nil, "", &os.PathError{Op: "opath.Walk", Path: logicalRootPath + unsafePath, Err: unix.ELOOP}
				}

				remainingPath = linkDest + "/" + remainingPath
				if path.IsAbs(linkDest) {
					if err := w.jumpToRoot(); err != nil {
						return nil, "", err
					}
				}

			default:
				// Not a directory or symlink: this is the end of the walk,
				// whether or not more path components remain unresolved.
				return nextDir, remainingPath, nil
			}

		case errors.Is(err, os.ErrNotExist):
			return w.currentDir, oldRemainingPath, nil

		default:
			return nil, "", err
		}
	}
	return w.currentDir, "", nil
}

// Resolve is [Walk] but requires the entire path to exist; a dangling
// component is reported as the underlying ENOENT rather than a partial
// success.
func Resolve(root fd.Fd, unsafePath string, opts Options) (*os.File, error) {
	handle, remaining, err := Walk(root, unsafePath, opts)
	if err != nil {
		return nil, err
	}
	if remaining != "" {
		handle.Close() //nolint:errcheck
		return nil, &os.PathError{Op: "opath.Resolve", Path: unsafePath, Err: unix.ENOENT}
	}
	return handle, nil
}
