// SPDX-License-Identifier: MPL-2.0

// Copyright (C) 2025-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assert provides minimal runtime assertions for invariants that
// indicate a bug in pathguard itself (not a caller error or a hostile
// filesystem). These should never fire in correct code; they exist to turn
// silent invariant violations into loud, debuggable panics.
package assert

import "fmt"

// Assert panics with msg if cond is false.
func Assert(cond bool, msg any) {
	if !cond {
		panic(msg)
	}
}

// Assertf panics with a formatted message if cond is false.
func Assertf(cond bool, fmtMsg string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(fmtMsg, args...))
	}
}
