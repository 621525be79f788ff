// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestClassifyNilIsNil(t *testing.T) {
	assert.Nil(t, classify("op", nil))
}

func TestClassifyDoesNotDoubleWrap(t *testing.T) {
	inner := classify("first", errors.New("boom")).(*Error)
	outer := classify("second", inner)

	var pgErr *Error
	require.True(t, errors.As(outer, &pgErr))
	assert.Same(t, inner, pgErr)
}

func TestClassifyMapsErrno(t *testing.T) {
	err := classify("op", unix.ENOENT)
	var pgErr *Error
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, KindNotFound, pgErr.Kind)
	assert.Equal(t, unix.ENOENT, pgErr.Errno())
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "NotFound", KindNotFound.String())
	assert.Equal(t, "XDev", KindXDev.String())
}

func TestIsNotExist(t *testing.T) {
	assert.True(t, IsNotExist(classify("op", unix.ENOENT)))
	assert.True(t, IsNotExist(classify("op", unix.ENOTDIR)))
	assert.False(t, IsNotExist(classify("op", unix.EEXIST)))
}
