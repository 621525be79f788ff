// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package procfs

import (
	"fmt"
	"math"
)

// baseKind discriminates the anchor of a [ProcBase].
type baseKind int

const (
	kindRoot baseKind = iota
	kindSelf
	kindThreadSelf
	kindPid
)

// ProcBase selects which view of /proc a [Handle] lookup is anchored at:
// the top-level /proc, /proc/self, /proc/thread-self, or /proc/$pid for a
// specific pid/tid. Construct one with [ProcRoot], [ProcSelf],
// [ProcThreadSelf], or [ProcPid].
type ProcBase struct {
	kind baseKind
	pid  uint32
}

// ProcRoot refers to the root of procfs (i.e. "/proc/<subpath>"). Only use
// this for genuinely global files (e.g. sysctls in /proc/sys) -- unlike the
// other bases, looking things up under ProcRoot may need to fall back to an
// unmasked (non subset=pid) procfs handle, which is a juicier target for
// overmount/confusion attacks.
var ProcRoot = ProcBase{kind: kindRoot}

// ProcSelf refers to the current thread-group's directory
// ("/proc/self/<subpath>").
var ProcSelf = ProcBase{kind: kindSelf}

// ProcThreadSelf refers to the current thread's directory
// ("/proc/thread-self/<subpath>", or an equivalent on pre-3.17 kernels).
// Prefer this over [ProcSelf] whenever the subpath is thread-specific (e.g.
// "fd/N" during a reopen), since in a multi-threaded Go program "self" can
// refer to a different OS thread than the one executing the call.
var ProcThreadSelf = ProcBase{kind: kindThreadSelf}

// ProcPid returns a ProcBase referring to "/proc/<pid>/<subpath>" for an
// arbitrary pid or tid. pid must be less than 2^31; pids/tids recycle, so
// callers must ensure pid still identifies the process/thread they intend.
func ProcPid(pid uint32) (ProcBase, error) {
	if pid >= uint32(math.MaxInt32)+1 {
		return ProcBase{}, fmt.Errorf("invalid pid %d: out of range", pid)
	}
	return ProcBase{kind: kindPid, pid: pid}, nil
}

// String implements fmt.Stringer.
func (b ProcBase) String() string {
	switch b.kind {
	case kindRoot:
		return "<proc>"
	case kindSelf:
		return "self"
	case kindThreadSelf:
		return "thread-self"
	case kindPid:
		return fmt.Sprintf("%d", b.pid)
	default:
		return "<invalid ProcBase>"
	}
}

// Equal reports whether two ProcBase values refer to the same anchor.
func (b ProcBase) Equal(other ProcBase) bool {
	return b.kind == other.kind && b.pid == other.pid
}
