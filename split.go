// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"fmt"
	"strings"
)

// splitSubpath splits unsafePath (already "/"-separated) into the subpath
// of its parent directory and its final component, reporting separately
// whether the original path had a trailing slash. It performs no
// filesystem access and no safety checks -- it is purely lexical, the same
// way the kernel itself splits a path before the final lookup.
func splitSubpath(unsafePath string) (parent, base string, trailingSlash bool) {
	p := strings.ReplaceAll(unsafePath, "\\", "/")
	trailingSlash = len(p) > 0 && strings.HasSuffix(p, "/")
	p = strings.TrimRight(p, "/")
	if p == "" {
		// The whole path was "/" or "" or all slashes: there is no valid
		// basename to operate on.
		return "", "", trailingSlash
	}
	if idx := strings.LastIndexByte(p, '/'); idx != -1 {
		return p[:idx], p[idx+1:], trailingSlash
	}
	return ".", p, trailingSlash
}

// validateBase rejects the basenames that every mutating operation (except
// mkdir, which strips a trailing slash first) must reject: empty, ".", and
// "..", none of which name a creatable/removable directory entry.
func validateBase(base string) error {
	switch base {
	case "", ".", "..":
		return fmt.Errorf("%w: invalid path component %q", errInvalidArgument, base)
	}
	return nil
}
