// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"fmt"
	"os"

	"github.com/pathguard/pathguard/internal/fd"
)

// Handle owns an O_PATH file descriptor to an inode of any type. Unlike a
// Root, a Handle's fd is never promoted in place -- to get a usable fd for
// I/O, call [Handle.Reopen], which always returns a distinct, new fd.
type Handle struct {
	inner *os.File
}

// Reopen promotes the handle to a real, usable fd opened with flags, via
// the hardened /proc/self/fd reopen path (component C7). See [reopenHandle].
func (h *Handle) Reopen(flags int) (*os.File, error) {
	f, err := reopenHandle(h.inner, flags)
	if err != nil {
		return nil, classify("reopen", err)
	}
	return f, nil
}

// Readlink returns the symlink target of the handle's inode. It fails with
// ENOENT (matching readlinkat's own behavior) if the inode isn't a symlink.
func (h *Handle) Readlink() (string, error) {
	target, err := fd.Readlinkat(h.inner, "")
	if err != nil {
		return "", classify("readlink", err)
	}
	return target, nil
}

// Clone returns a new Handle sharing the same inode (via dup), independently
// closable from the original.
func (h *Handle) Clone() (*Handle, error) {
	dup, err := fd.Dup(h.inner)
	if err != nil {
		return nil, fmt.Errorf("clone handle: %w", err)
	}
	return &Handle{inner: dup}, nil
}

// Close releases the handle's file descriptor.
func (h *Handle) Close() error {
	return h.inner.Close()
}
