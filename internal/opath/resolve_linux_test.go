// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package opath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func createInTree(t *testing.T, root, spec string) {
	t.Helper()
	f := strings.Fields(spec)
	require.GreaterOrEqual(t, len(f), 2)
	inoType, subPath, f := f[0], f[1], f[2:]
	fullPath := filepath.Join(root, subPath)
	switch inoType {
	case "dir":
		require.NoError(t, os.MkdirAll(fullPath, 0o755))
	case "file":
		var contents []byte
		if len(f) >= 1 {
			contents = []byte(f[0])
		}
		require.NoError(t, os.WriteFile(fullPath, contents, 0o644))
	case "symlink":
		require.NoError(t, os.Symlink(f[0], fullPath))
	}
}

func createTree(t *testing.T, specs ...string) string {
	t.Helper()
	base := t.TempDir()
	treeRoot := filepath.Join(base, "tree")
	require.NoError(t, os.MkdirAll(treeRoot, 0o755))
	for _, spec := range specs {
		createInTree(t, treeRoot, spec)
	}
	return treeRoot
}

func openRootFd(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWalkCompleteLookup(t *testing.T) {
	root := createTree(t, "dir a/b/c")
	rootFd := openRootFd(t, root)

	h, remaining, err := Walk(rootFd, "a/b/c", Options{NoXDev: true})
	require.NoError(t, err)
	defer h.Close()
	assert.Empty(t, remaining)
}

func TestWalkPartialLookup(t *testing.T) {
	root := createTree(t, "dir a")
	rootFd := openRootFd(t, root)

	h, remaining, err := Walk(rootFd, "a/b/c", Options{NoXDev: true})
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "b/c", remaining)
}

func TestResolveNonexistentFails(t *testing.T) {
	root := createTree(t, "dir a")
	rootFd := openRootFd(t, root)

	_, err := Resolve(rootFd, "a/b/c", Options{NoXDev: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestResolveFollowsSymlink(t *testing.T) {
	root := createTree(t, "dir target", "symlink link target")
	rootFd := openRootFd(t, root)

	h, err := Resolve(rootFd, "link", Options{NoXDev: true})
	require.NoError(t, err)
	defer h.Close()

	stat, err := h.Stat()
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestResolveNoFollowTrailingReturnsSymlink(t *testing.T) {
	root := createTree(t, "dir target", "symlink link target")
	rootFd := openRootFd(t, root)

	h, err := Resolve(rootFd, "link", Options{NoXDev: true, NoFollowTrailing: true})
	require.NoError(t, err)
	defer h.Close()

	stat, err := h.Stat()
	require.NoError(t, err)
	assert.True(t, stat.Mode()&os.ModeSymlink != 0)
}

func TestResolveSymlinkLoopHitsBudget(t *testing.T) {
	root := createTree(t, "symlink a b", "symlink b a")
	rootFd := openRootFd(t, root)

	_, err := Resolve(rootFd, "a", Options{NoXDev: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ELOOP)
}

func TestResolveAbsoluteSymlinkStaysInRoot(t *testing.T) {
	root := createTree(t, "dir target", "symlink abslink /target")
	rootFd := openRootFd(t, root)

	h, err := Resolve(rootFd, "abslink", Options{NoXDev: true})
	require.NoError(t, err)
	defer h.Close()

	stat, err := h.Stat()
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestResolveDotDotCannotEscapeRoot(t *testing.T) {
	root := createTree(t, "dir a")
	rootFd := openRootFd(t, root)

	// However many ".." components, resolution must stay pinned at root.
	h, err := Resolve(rootFd, "../../../../a", Options{NoXDev: true})
	require.NoError(t, err)
	h.Close()
}

func TestPartialLookupHelper(t *testing.T) {
	root := createTree(t, "dir a/b")
	rootFd := openRootFd(t, root)

	h, remaining, err := PartialLookup(rootFd, "a/b/c/d")
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "c/d", remaining)
}
