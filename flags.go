// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

// ResolverFlags is a bitset of resolution options passed to [Root.Resolve].
// The zero value follows trailing symlinks, matching the kernel's own
// openat(2) default.
type ResolverFlags uint32

const (
	// NoFollowTrailing causes the final path component to be returned
	// unresolved if it is a symlink, rather than followed.
	NoFollowTrailing ResolverFlags = 1 << iota
)

func (f ResolverFlags) noFollowTrailing() bool {
	return f&NoFollowTrailing != 0
}
