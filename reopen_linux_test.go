// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReopenFileForReading(t *testing.T) {
	root := createTree(t, "file a hello")
	r := openTreeRoot(t, root)

	h, err := r.Resolve("a", 0)
	require.NoError(t, err)
	defer h.Close()

	f, err := h.Reopen(unix.O_RDONLY)
	require.NoError(t, err)
	defer f.Close()

	contents, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))
}

func TestReopenDirectory(t *testing.T) {
	root := createTree(t, "dir a")
	r := openTreeRoot(t, root)

	h, err := r.Resolve("a", 0)
	require.NoError(t, err)
	defer h.Close()

	f, err := h.Reopen(unix.O_RDONLY | unix.O_DIRECTORY)
	require.NoError(t, err)
	defer f.Close()

	names, err := f.Readdirnames(-1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReopenRejectsNoFollowOnSymlink(t *testing.T) {
	root := createTree(t, "file target hi", "symlink link target")
	r := openTreeRoot(t, root)

	h, err := r.Resolve("link", NoFollowTrailing)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Reopen(unix.O_RDONLY | unix.O_NOFOLLOW)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ELOOP)
}
