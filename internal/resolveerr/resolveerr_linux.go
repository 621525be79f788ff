// SPDX-License-Identifier: MPL-2.0

// Copyright (C) 2024-2025 Aleksa Sarai <cyphar@cyphar.com>
// Copyright (C) 2024-2026 The pathguard Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux

// Package resolveerr holds the small set of sentinel errors shared between
// the two resolver backends (internal/opath, internal/openat2res) and the
// top-level package's error classifier. Keeping them in a leaf package lets
// both backends wrap the same sentinels without importing each other or the
// top-level package.
package resolveerr

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/gocompat"
)

// ErrPossibleAttack means a component behaved in a way inconsistent with
// its expected type mid-resolution -- e.g. readlinkat reporting EINVAL on
// something that was a symlink a moment ago. Something is actively racing
// the resolution.
var ErrPossibleAttack = errors.New("possible attack detected")

// ErrPossibleBreakout means the resolved path doesn't match what the
// resolver expected -- a bind-mount or ".." escape carried the walk outside
// the root. It satisfies errors.Is(err, unix.EXDEV), matching the kernel's
// own convention for reporting RESOLVE_NO_XDEV violations.
var ErrPossibleBreakout = gocompat.WrapBaseError(unix.EXDEV, errors.New("possible breakout detected"))
