// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpenRootRejectsNonDirectory(t *testing.T) {
	root := createTree(t, "file notadir hello")
	_, err := OpenRoot(filepath.Join(root, "notadir"))
	require.Error(t, err)
}

func TestResolveContainment(t *testing.T) {
	tree := []string{
		"dir a/b/c",
		"file a/b/c/target hello",
		"symlink escape-abs /etc/passwd",
		"symlink escape-rel ../../../../../../etc/passwd",
		"symlink inside-ok a/b/c/target",
	}
	root := createTree(t, tree...)
	r := openTreeRoot(t, root)

	h, err := r.Resolve("a/b/c/target", 0)
	require.NoError(t, err)
	f, err := h.Reopen(unix.O_RDONLY)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, h.Close())

	// A symlink pointing outside the root must be treated as root-relative:
	// since no such path exists inside this tree, resolution must fail with
	// ENOENT, never actually reach the host's /etc/passwd.
	_, err = r.Resolve("escape-abs", 0)
	require.Error(t, err)
	assert.True(t, IsNotExist(err))

	_, err = r.Resolve("escape-rel", 0)
	require.Error(t, err)
	assert.True(t, IsNotExist(err))

	h3, err := r.Resolve("inside-ok", 0)
	require.NoError(t, err)
	defer h3.Close()
}

func TestResolveTrailingSymlink(t *testing.T) {
	root := createTree(t,
		"dir a",
		"file a/target hi",
		"symlink a/link target",
	)
	r := openTreeRoot(t, root)

	// Default: follow the trailing symlink.
	h, err := r.Resolve("a/link", 0)
	require.NoError(t, err)
	defer h.Close()
	f, err := h.Reopen(unix.O_RDONLY)
	require.NoError(t, err)
	defer f.Close()

	// NoFollowTrailing: get the symlink itself.
	h2, err := r.Resolve("a/link", NoFollowTrailing)
	require.NoError(t, err)
	defer h2.Close()
	target, err := h2.Readlink()
	require.NoError(t, err)
	assert.Equal(t, "target", target)
}

func TestResolveDanglingSymlinkIsNotExist(t *testing.T) {
	root := createTree(t, "symlink dangling nonexistent-target")
	r := openTreeRoot(t, root)

	_, err := r.Resolve("dangling", 0)
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestResolveSymlinkLoop(t *testing.T) {
	root := createTree(t,
		"symlink loop1 loop2",
		"symlink loop2 loop1",
	)
	r := openTreeRoot(t, root)

	_, err := r.Resolve("loop1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ELOOP)
}

func TestOpenSubpath(t *testing.T) {
	root := createTree(t, "file a hello world")
	r := openTreeRoot(t, root)

	f, err := r.OpenSubpath("a", unix.O_RDONLY)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 32)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestRootCloneIndependent(t *testing.T) {
	root := createTree(t, "file a hi")
	r := openTreeRoot(t, root)

	clone, err := r.Clone()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	// The clone must still work after the original is closed.
	f, err := clone.OpenSubpath("a", unix.O_RDONLY)
	require.NoError(t, err)
	f.Close()
	clone.Close()
}
