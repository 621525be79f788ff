// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMkdirAllCreatesEveryComponent(t *testing.T) {
	root := createTree(t)
	r := openTreeRoot(t, root)

	h, err := r.MkdirAll("a/b/c/d", 0o755)
	require.NoError(t, err)
	defer h.Close()

	f, err := h.Reopen(unix.O_RDONLY | unix.O_DIRECTORY)
	require.NoError(t, err)
	f.Close()

	for _, p := range []string{"a", "a/b", "a/b/c", "a/b/c/d"} {
		hh, err := r.Resolve(p, 0)
		require.NoError(t, err, p)
		hh.Close()
	}
}

func TestMkdirAllIdempotent(t *testing.T) {
	root := createTree(t, "dir a/b")
	r := openTreeRoot(t, root)

	h1, err := r.MkdirAll("a/b/c", 0o755)
	require.NoError(t, err)
	h1.Close()

	// Calling it again must succeed without error, per the idempotence
	// property -- an already-existing prefix isn't an error.
	h2, err := r.MkdirAll("a/b/c", 0o755)
	require.NoError(t, err)
	h2.Close()
}

func TestMkdirAllFailsThroughFile(t *testing.T) {
	root := createTree(t, "dir a", "file a/notadir hi")
	r := openTreeRoot(t, root)

	_, err := r.MkdirAll("a/notadir/b", 0o755)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOTDIR)
}

func TestMkdirAllRejectsDotDot(t *testing.T) {
	root := createTree(t)
	r := openTreeRoot(t, root)

	// None of "nonexist", "..", "escape" exist yet, so the partial lookup
	// can't resolve any of it lexically -- the whole thing lands in the
	// yet-to-be-created remainder, which must reject the embedded "..".
	_, err := r.MkdirAll("nonexist/../escape", 0o755)
	require.Error(t, err)
}

func TestMkdirAllConcurrentRacersAllSucceed(t *testing.T) {
	root := createTree(t)
	r := openTreeRoot(t, root)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			h, err := r.MkdirAll("race/a/b/c", 0o755)
			errs[i] = err
			if h != nil {
				h.Close()
			}
		}(i)
	}
	start.Done()
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "racer %d: a losing racer should see EEXIST absorbed, not surfaced", i)
	}

	h, err := r.Resolve("race/a/b/c", 0)
	require.NoError(t, err)
	h.Close()
}

func TestMkdirAllRejectsBadMode(t *testing.T) {
	root := createTree(t)
	r := openTreeRoot(t, root)

	_, err := r.MkdirAll("a/b", 0o10000)
	require.Error(t, err)
}
