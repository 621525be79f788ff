// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package openat2res

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/kernelversion"
)

func TestResolveBasic(t *testing.T) {
	if !kernelversion.HasOpenat2() {
		t.Skip("kernel lacks openat2")
	}

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))

	root, err := os.OpenFile(dir, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	defer root.Close()

	h, err := Resolve(root, "a/b", false)
	require.NoError(t, err)
	defer h.Close()
}

func TestResolveEscapeStaysInRoot(t *testing.T) {
	if !kernelversion.HasOpenat2() {
		t.Skip("kernel lacks openat2")
	}

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "target"), 0o755))
	require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(dir, "escape")))

	root, err := os.OpenFile(dir, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	defer root.Close()

	// /etc/passwd doesn't exist inside dir, so a root-confined resolution
	// of the absolute symlink must fail with ENOENT, not actually reach the
	// host's /etc/passwd.
	_, err = Resolve(root, "escape", false)
	require.Error(t, err)
	if !errors.Is(err, ErrNotSupported) {
		require.ErrorIs(t, err, unix.ENOENT)
	}
}
