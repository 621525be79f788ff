// SPDX-License-Identifier: BSD-3-Clause

// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

// Package gocompat provides small stdlib-shaped helpers so the rest of
// pathguard doesn't need to care exactly which Go 1.21+ toolchain minor
// version is in use.
package gocompat

import (
	"slices"
	"sync"
)

// SlicesDeleteFunc is equivalent to Go 1.21's slices.DeleteFunc.
func SlicesDeleteFunc[S ~[]E, E any](slice S, delFn func(E) bool) S {
	return slices.DeleteFunc(slice, delFn)
}

// SlicesContains is equivalent to Go 1.21's slices.Contains.
func SlicesContains[S ~[]E, E comparable](slice S, val E) bool {
	return slices.Contains(slice, val)
}

// SlicesClone is equivalent to Go 1.21's slices.Clone.
func SlicesClone[S ~[]E, E any](slice S) S {
	return slices.Clone(slice)
}

// SyncOnceValue is equivalent to Go 1.21's sync.OnceValue.
func SyncOnceValue[T any](f func() T) func() T {
	return sync.OnceValue(f)
}

// SyncOnceValues is equivalent to Go 1.21's sync.OnceValues.
func SyncOnceValues[T1, T2 any](f func() (T1, T2)) func() (T1, T2) {
	return sync.OnceValues(f)
}
