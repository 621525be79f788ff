// SPDX-License-Identifier: BSD-3-Clause

// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gocompat

import "fmt"

// WrapBaseError combines a "base" sentinel error with an additional error so
// that errors.Is/errors.As can match either one. Go 1.20+ supports multiple
// %w verbs in fmt.Errorf, which is all this needs -- the helper exists so
// call sites don't need to remember the argument order or the verb.
func WrapBaseError(baseErr, extraErr error) error {
	return fmt.Errorf("%w: %w", extraErr, baseErr)
}
