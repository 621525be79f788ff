// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
)

// Readlink reads the target of the symlink at unsafePath, resolving every
// component but the last one normally and refusing to follow the last
// component itself. Not-a-symlink is reported as ENOENT, the errno
// readlinkat gives for an empty path on a non-symlink handle; an EINVAL from
// readlinkat is mapped to ENOENT as well.
func (r *Root) Readlink(unsafePath string) (string, error) {
	link, err := r.resolve(unsafePath, NoFollowTrailing)
	if err != nil {
		return "", classify("readlink", err)
	}
	defer link.Close() //nolint:errcheck

	target, err := fd.Readlinkat(link, "")
	if err != nil {
		if errors.Is(err, unix.EINVAL) {
			return "", classify("readlink", &os.PathError{Op: "readlink", Path: unsafePath, Err: unix.ENOENT})
		}
		return "", classify("readlink", err)
	}
	return target, nil
}
