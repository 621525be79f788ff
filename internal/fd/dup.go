// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fd

import (
	"os"

	"golang.org/x/sys/unix"
)

// Dup duplicates f with F_DUPFD_CLOEXEC, producing an independent *os.File
// that refers to the same underlying open file description. Root and Handle
// clone operations are built on this -- the fd, once installed in a Root, is
// never mutated in place, so sharing means dup'ing.
func Dup(f Fd) (*os.File, error) {
	newFd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("fcntl(F_DUPFD_CLOEXEC)", err)
	}
	return os.NewFile(uintptr(newFd), f.Name()), nil
}
