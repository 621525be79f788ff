// Copyright (C) 2025-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package kernelversion provides a minimal helper for comparing the running
// kernel's version against a required minimum, used to gate features like
// the new mount API (fsopen/fsmount, >= 5.2) and openat2 (>= 5.6) without
// probing for ENOSYS on every call.
package kernelversion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/gocompat"
)

// KernelVersion is a dotted version, e.g. {5, 8, 0} for "5.8.0".
type KernelVersion []int

// String returns the dotted-decimal representation of the version.
func (v KernelVersion) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

var errInvalidKernelVersion = errors.New("invalid kernel version")

// parseKernelVersion parses the leading dotted-numeric prefix of a
// uname(2)-style release string (e.g. "6.12.0-1-default" -> {6, 12, 0}),
// stopping at the first field with a non-numeric suffix. At least two
// components are required.
func parseKernelVersion(release string) (KernelVersion, error) {
	var version KernelVersion
	for _, field := range strings.Split(release, ".") {
		numeric := field
		for j := 0; j < len(field); j++ {
			if field[j] < '0' || field[j] > '9' {
				numeric = field[:j]
				break
			}
		}
		if numeric == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidKernelVersion, release)
		}
		n, err := strconv.Atoi(numeric)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidKernelVersion, release)
		}
		version = append(version, n)
		if numeric != field {
			// Hit a non-numeric suffix in this field; nothing after it is
			// usable.
			break
		}
	}
	if len(version) < 2 {
		return nil, fmt.Errorf("%w: %q", errInvalidKernelVersion, release)
	}
	return version, nil
}

var getKernelVersion = gocompat.SyncOnceValues(func() (KernelVersion, error) {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return nil, err
	}
	release := unix.ByteSliceToString(uname.Release[:])
	return parseKernelVersion(release)
})

// GreaterEqualThan returns whether the running kernel's version is greater
// than or equal to want. Missing trailing components (in either version) are
// treated as zero, so {5, 8} == {5, 8, 0}.
func GreaterEqualThan(want KernelVersion) (bool, error) {
	have, err := getKernelVersion()
	if err != nil {
		return false, err
	}
	for i := 0; i < len(want) || i < len(have); i++ {
		var w, h int
		if i < len(want) {
			w = want[i]
		}
		if i < len(have) {
			h = have[i]
		}
		if h != w {
			return h > w, nil
		}
	}
	return true, nil
}
