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

// Create makes a new inode of the given type at unsafePath. Only [File]
// returns a usable *os.File -- every other InodeType returns a nil file on
// success, since an O_PATH handle to a device/fifo/socket node is rarely
// what a caller wants and can always be obtained separately via Resolve.
func (r *Root) Create(unsafePath string, inode InodeType) (*os.File, error) {
	parentPath, base, trailingSlash := splitSubpath(unsafePath)
	if inode.kind != inodeDirectory && trailingSlash {
		return nil, classify("create", fmt.Errorf("%w: trailing slash not allowed for this inode type", errInvalidArgument))
	}
	if err := validateBase(base); err != nil {
		return nil, classify("create", err)
	}

	parent, err := r.resolveParent(parentPath)
	if err != nil {
		return nil, classify("create", err)
	}
	defer parent.Close() //nolint:errcheck

	switch inode.kind {
	case inodeFile:
		return r.createFile(parent, base, inode)
	case inodeDirectory:
		if inode.mode&^0o7777 != 0 {
			return nil, classify("create", fmt.Errorf("%w for mkdir 0o%.3o", errInvalidMode, inode.mode))
		}
		return nil, classify("create", fd.Mkdirat(parent, base, inode.mode))
	case inodeSymlink:
		return nil, classify("create", fd.Symlinkat(inode.target, parent, base))
	case inodeHardlink:
		return nil, classify("create", r.createHardlink(parent, base, inode.target))
	case inodeFifo:
		return nil, classify("create", fd.Mknodat(parent, base, unix.S_IFIFO|inode.mode, 0))
	case inodeCharDevice:
		return nil, classify("create", fd.Mknodat(parent, base, unix.S_IFCHR|inode.mode, inode.dev))
	case inodeBlockDevice:
		return nil, classify("create", fd.Mknodat(parent, base, unix.S_IFBLK|inode.mode, inode.dev))
	case inodeSocket:
		return nil, classify("create", fd.Mknodat(parent, base, unix.S_IFSOCK|inode.mode, 0))
	default:
		return nil, classify("create", fmt.Errorf("%w: invalid inode type", errInvalidArgument))
	}
}

// resolveParent resolves parentPath to a directory handle, failing with
// ENOTDIR if it turns out not to be one.
func (r *Root) resolveParent(parentPath string) (*os.File, error) {
	parent, err := r.resolve(parentPath, 0)
	if err != nil {
		return nil, fmt.Errorf("resolve parent %q: %w", parentPath, err)
	}
	stat, err := fd.Fstat(parent)
	if err != nil {
		parent.Close() //nolint:errcheck
		return nil, fmt.Errorf("stat parent %q: %w", parentPath, err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		parent.Close() //nolint:errcheck
		return nil, &os.PathError{Op: "create", Path: parentPath, Err: unix.ENOTDIR}
	}
	return parent, nil
}

func (r *Root) createFile(parent *os.File, base string, inode InodeType) (*os.File, error) {
	if inode.flags&(unix.O_CREAT|unix.O_EXCL) != 0 {
		return nil, classify("create", fmt.Errorf("%w: O_CREAT/O_EXCL are implied for File and must not be set", errInvalidArgument))
	}
	flags := inode.flags | unix.O_CREAT | unix.O_EXCL | unix.O_NOFOLLOW
	f, err := fd.Openat(parent, base, flags, int(inode.mode&0o7777))
	if err != nil {
		return nil, classify("create", err)
	}
	return f, nil
}

func (r *Root) createHardlink(parent *os.File, base, targetSubpath string) error {
	src, err := r.resolve(targetSubpath, NoFollowTrailing)
	if err != nil {
		return fmt.Errorf("resolve hardlink target %q: %w", targetSubpath, err)
	}
	defer src.Close() //nolint:errcheck
	stat, err := fd.Fstat(src)
	if err != nil {
		return fmt.Errorf("stat hardlink target %q: %w", targetSubpath, err)
	}
	if stat.Mode&unix.S_IFMT == unix.S_IFDIR {
		return &os.LinkError{Op: "linkat", Old: targetSubpath, New: base, Err: unix.EPERM}
	}
	return fd.Linkat(src, "", parent, base, unix.AT_EMPTY_PATH)
}

// Mkdir creates a single directory at unsafePath. A trailing slash on the
// target is silently stripped, matching mkdir(2)'s own lenience.
func (r *Root) Mkdir(unsafePath string, mode int) error {
	if mode&^0o7777 != 0 {
		return classify("mkdir", fmt.Errorf("%w for mkdir 0o%.3o", errInvalidMode, mode))
	}
	_, err := r.Create(unsafePath, Directory(uint32(mode)))
	return err
}
