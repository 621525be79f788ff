// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package opath

import "github.com/pathguard/pathguard/internal/resolveerr"

// errPossibleAttack and errPossibleBreakout are aliases of the shared
// sentinels in internal/resolveerr -- kept as package-local names so the
// rest of this file reads the same as the teacher's lookup_linux.go.
var (
	errPossibleAttack   = resolveerr.ErrPossibleAttack
	errPossibleBreakout = resolveerr.ErrPossibleBreakout
)
