// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadlink(t *testing.T) {
	root := createTree(t, "symlink link some/target")
	r := openTreeRoot(t, root)

	target, err := r.Readlink("link")
	require.NoError(t, err)
	assert.Equal(t, "some/target", target)
}

func TestReadlinkNotASymlink(t *testing.T) {
	root := createTree(t, "file notalink hi")
	r := openTreeRoot(t, root)

	_, err := r.Readlink("notalink")
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}
