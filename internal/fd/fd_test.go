// Copyright (C) 2025-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fd_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathguard/pathguard/internal/fd"
)

func TestNopCloser(t *testing.T) {
	f, err := os.Open("/")
	require.NoError(t, err)
	require.NotNil(t, f, "open /")

	actualName := f.Name()
	actualFd := f.Fd()

	f2 := fd.NopCloser(f)
	require.NotNil(t, f2, "wrap f2")

	assert.NoError(t, f2.Close(), "close no-op")       //nolint:testifylint
	assert.NoError(t, f2.Close(), "close no-op again") //nolint:testifylint

	assert.Equal(t, actualFd, f2.Fd(), "fd should still be valid (file not closed)")
	assert.Equal(t, actualName, f2.Name(), "fd should still be valid (file not closed)")

	require.NoError(t, f.Close(), "close underlying file")

	assert.NotEqual(t, actualFd, f2.Fd(), "fd should not be valid (file closed)")
}

func TestDup(t *testing.T) {
	f, err := os.Open("/")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	dup, err := fd.Dup(f)
	require.NoError(t, err)
	defer dup.Close() //nolint:errcheck

	assert.NotEqual(t, f.Fd(), dup.Fd(), "dup should be a distinct fd number")
	assert.NoError(t, f.Close(), "closing original must not affect the dup")

	_, statErr := fd.Fstat(dup)
	assert.NoError(t, statErr, "dup should still be usable after original is closed")
}
