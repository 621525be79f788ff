// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/mountid"
	"github.com/pathguard/pathguard/internal/opath"
	"github.com/pathguard/pathguard/internal/procfs"
)

// RemoveFile unlinks a non-directory entry at unsafePath. A trailing slash
// on the target, or the target turning out to be a directory, fails with
// the same errno the kernel itself would give unlinkat (ENOTDIR/EISDIR).
func (r *Root) RemoveFile(unsafePath string) error {
	parentPath, base, trailingSlash := splitSubpath(unsafePath)
	if trailingSlash {
		return classify("remove_file", &os.PathError{Op: "unlinkat", Path: unsafePath, Err: unix.ENOTDIR})
	}
	if err := validateBase(base); err != nil {
		return classify("remove_file", err)
	}
	parent, err := r.resolveParent(parentPath)
	if err != nil {
		return classify("remove_file", err)
	}
	defer parent.Close() //nolint:errcheck
	return classify("remove_file", fd.Unlinkat(parent, base, 0))
}

// RemoveDir removes an empty directory at unsafePath.
func (r *Root) RemoveDir(unsafePath string) error {
	parentPath, base, _ := splitSubpath(unsafePath)
	if err := validateBase(base); err != nil {
		return classify("remove_dir", err)
	}
	parent, err := r.resolveParent(parentPath)
	if err != nil {
		return classify("remove_dir", err)
	}
	defer parent.Close() //nolint:errcheck
	return classify("remove_dir", fd.Unlinkat(parent, base, unix.AT_REMOVEDIR))
}

// RemoveAll recursively removes the tree rooted at unsafePath. It succeeds
// (as a no-op) if the path doesn't exist. Refuses to recurse across a mount
// boundary, and tolerates entries disappearing mid-iteration (another
// racing RemoveAll, for instance) by skipping them silently.
//
// Removing "." or "/" is deliberately left unsupported -- upstream marks
// this exact case as an unresolved ambiguity (does it mean "empty the
// root" or "remove the root itself", which isn't a thing Root can do) and
// this module preserves that rather than inventing a resolution.
func (r *Root) RemoveAll(unsafePath string) error {
	if _, base, _ := splitSubpath(unsafePath); base == "" || base == "." {
		return classify("remove_all", fmt.Errorf("%w: removing the root itself is not supported", errInvalidArgument))
	}

	target, err := opath.Resolve(r.inner, unsafePath, opath.Options{NoFollowTrailing: true, NoXDev: true})
	if err != nil {
		if IsNotExist(classify("remove_all", err)) {
			return nil
		}
		return classify("remove_all", err)
	}
	defer target.Close() //nolint:errcheck

	stat, err := fd.Fstat(target)
	if err != nil {
		return classify("remove_all", err)
	}

	parentPath, base, _ := splitSubpath(unsafePath)
	parent, err := r.resolveParent(parentPath)
	if err != nil {
		return classify("remove_all", err)
	}
	defer parent.Close() //nolint:errcheck

	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		return classify("remove_all", fd.Unlinkat(parent, base, 0))
	}

	rootID, err := mountIDOf(r.inner)
	if err != nil {
		return classify("remove_all", err)
	}
	// target is an O_PATH handle, which can't be listed; open the directory
	// itself (relative to target, so no further lookup is involved) for reading.
	dir, err := fd.Openat(target, ".", unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return classify("remove_all", err)
	}
	defer dir.Close() //nolint:errcheck
	if err := removeAllTree(dir, rootID); err != nil {
		return classify("remove_all", err)
	}
	err = fd.Unlinkat(parent, base, unix.AT_REMOVEDIR)
	if err != nil && errors.Is(err, unix.ENOENT) {
		// Another RemoveAll (or an attacker) won the race and removed it
		// first -- per Testable Property 3, only the first caller need
		// "actually" remove it, but every caller should still see success.
		return nil
	}
	return classify("remove_all", err)
}

func mountIDOf(f fd.Fd) (mountid.ID, error) {
	reader, err := procfs.FdinfoReader()
	if err != nil {
		reader = nil
	}
	return mountid.Get(f, "", reader)
}

// removeFrame is one level of the explicit work stack removeAllTree walks.
// dir is emptied entry-by-entry; once names is exhausted, dir is closed and,
// unless it is the tree root itself, unlinked by its parent frame.
type removeFrame struct {
	dir   *os.File
	name  string // entry name in parent, "" for the root frame
	names []string
}

// removeAllTree empties dir (not removing dir itself), using an explicit
// work stack rather than native recursion -- a maliciously deep tree must
// not be able to grow the Go stack unboundedly. Entries are visited in
// directory order; a subdirectory is only unlinked once every frame pushed
// for its descendants has fully drained.
func removeAllTree(dir *os.File, rootID mountid.ID) error {
	root, err := checkedReaddirnames(dir, rootID)
	if err != nil {
		return err
	}
	stack := []*removeFrame{{dir: dir, names: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if len(top.names) == 0 {
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				// This was the caller's original dir handle -- RemoveAll's
				// caller owns it and both closes and unlinks it itself.
				break
			}
			top.dir.Close() //nolint:errcheck
			if err := fd.Unlinkat(stack[len(stack)-1].dir, top.name, unix.AT_REMOVEDIR); err != nil && !errors.Is(err, unix.ENOENT) {
				return fmt.Errorf("remove directory %q: %w", top.name, err)
			}
			continue
		}

		name := top.names[0]
		top.names = top.names[1:]

		stat, err := fd.Fstatat(top.dir, name, unix.AT_SYMLINK_NOFOLLOW)
		if err != nil {
			if errors.Is(err, unix.ENOENT) {
				continue
			}
			return fmt.Errorf("stat %q: %w", name, err)
		}
		if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
			if err := fd.Unlinkat(top.dir, name, 0); err != nil && !errors.Is(err, unix.ENOENT) {
				return fmt.Errorf("remove %q: %w", name, err)
			}
			continue
		}

		child, err := fd.Openat(top.dir, name, unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_RDONLY, 0)
		if err != nil {
			if errors.Is(err, unix.ENOENT) {
				continue
			}
			return fmt.Errorf("open %q: %w", name, err)
		}
		childNames, err := checkedReaddirnames(child, rootID)
		if err != nil {
			child.Close() //nolint:errcheck
			return err
		}
		stack = append(stack, &removeFrame{dir: child, name: name, names: childNames})
	}
	return nil
}

// checkedReaddirnames verifies dir is still on rootID's mount before
// listing it, so a bind-mount slipped in mid-walk can't pull removeAllTree
// across a filesystem boundary.
func checkedReaddirnames(dir *os.File, rootID mountid.ID) ([]string, error) {
	reader, err := procfs.FdinfoReader()
	if err != nil {
		reader = nil
	}
	dirID, err := mountid.Get(dir, "", reader)
	if err != nil {
		return nil, err
	}
	if !dirID.Equal(rootID) {
		return nil, fmt.Errorf("%w: refusing to recurse across a mount boundary", errInvalidArgument)
	}
	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("read directory entries: %w", err)
	}
	return names, nil
}
