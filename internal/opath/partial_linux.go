// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package opath

import (
	"os"

	"github.com/pathguard/pathguard/internal/fd"
)

// DefaultOptions is the Options used by callers that have no specific
// trailing-symlink or cross-device requirement -- the options
// [PartialLookup] uses, and so the ones mkdir_all resolves with.
var DefaultOptions = Options{NoXDev: true}

// PartialLookup walks as much of unsafePath as already exists within root
// and returns a handle to the deepest existing component plus whatever path
// remains. It's the building block for mkdir_all (create the remainder);
// remove_all does a full lookup instead.
func PartialLookup(root fd.Fd, unsafePath string) (*os.File, string, error) {
	return Walk(root, unsafePath, DefaultOptions)
}
