// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fd

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fsopen is a thin wrapper around fsopen(2), used to create a new filesystem
// context (e.g. "proc") that can then be configured and turned into a mount
// with [Fsmount].
func Fsopen(fsName string, flags int) (*os.File, error) {
	sysFd, err := unix.Fsopen(fsName, flags|unix.FSOPEN_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("fsopen "+fsName, err)
	}
	return os.NewFile(uintptr(sysFd), "fscontext:"+fsName), nil
}

// FsconfigSetString is a thin wrapper around fsconfig(FSCONFIG_SET_STRING).
func FsconfigSetString(ctx Fd, key, value string) error {
	if err := unix.FsconfigSetString(int(ctx.Fd()), key, value); err != nil {
		return os.NewSyscallError("fsconfig set_string "+key, err)
	}
	return nil
}

// FsconfigCreate is a thin wrapper around fsconfig(FSCONFIG_CMD_CREATE).
func FsconfigCreate(ctx Fd) error {
	if err := unix.FsconfigCreate(int(ctx.Fd())); err != nil {
		return os.NewSyscallError("fsconfig create", err)
	}
	return nil
}

// Fsmount is a thin wrapper around fsmount(2), turning a configured
// filesystem context into a detached mount fd.
func Fsmount(ctx Fd, flags int, mountFlags uintptr) (*os.File, error) {
	sysFd, err := unix.Fsmount(int(ctx.Fd()), flags|unix.FSMOUNT_CLOEXEC, int(mountFlags))
	if err != nil {
		return nil, os.NewSyscallError("fsmount", err)
	}
	return os.NewFile(uintptr(sysFd), "fsmount:"+ctx.Name()), nil
}

// OpenTree is a thin wrapper around open_tree(2), used to create a detached
// clone of an existing mount (e.g. the host's "/proc").
func OpenTree(dir Fd, path string, flags uint) (*os.File, error) {
	dirFd, fullPath := prepareAt(dir, path)
	sysFd, err := unix.OpenTree(dirFd, path, flags|unix.OPEN_TREE_CLOEXEC)
	if err != nil {
		return nil, &os.PathError{Op: "open_tree", Path: fullPath, Err: err}
	}
	return os.NewFile(uintptr(sysFd), fullPath), nil
}
