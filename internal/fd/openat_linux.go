// Copyright (C) 2014-2015 Docker Inc & Go Authors. All rights reserved.
// Copyright (C) 2017-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package fd

import (
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/unix"
)

// prepareAt returns -EBADF (an invalid fd) if dir is nil, otherwise using
// dir.Fd(). We use -EBADF because pathguard never wants to allow
// relative-to-cwd paths to leak in. The returned path is an *informational*
// string reasonable for the given *at(2) arguments -- it must never be used
// for an actual filesystem operation.
func prepareAt(dir Fd, path string) (dirFd int, unsafeUnmaskedPath string) {
	dirFd, dirPath := -int(unix.EBADF), "."
	if dir != nil {
		dirFd, dirPath = int(dir.Fd()), dir.Name()
	}
	if !filepath.IsAbs(path) {
		path = dirPath + "/" + path
	}
	return dirFd, path
}

// Openat is a thin, O_CLOEXEC-enforcing wrapper around openat(2).
func Openat(dir Fd, path string, flags int, mode int) (*os.File, error) {
	dirFd, fullPath := prepareAt(dir, path)
	flags |= unix.O_CLOEXEC
	sysFd, err := unix.Openat(dirFd, path, flags, uint32(mode))
	if err != nil {
		return nil, &os.PathError{Op: "openat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return os.NewFile(uintptr(sysFd), filepath.Clean(fullPath)), nil
}

// Fstatat is a thin wrapper around fstatat(2).
func Fstatat(dir Fd, path string, flags int) (unix.Stat_t, error) {
	dirFd, fullPath := prepareAt(dir, path)
	var stat unix.Stat_t
	if err := unix.Fstatat(dirFd, path, &stat, flags); err != nil {
		return stat, &os.PathError{Op: "fstatat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return stat, nil
}

// Readlinkat is a thin wrapper around readlinkat(2) that grows its buffer
// until the whole link target fits.
func Readlinkat(dir Fd, path string) (string, error) {
	dirFd, fullPath := prepareAt(dir, path)
	size := 4096
	for {
		linkBuf := make([]byte, size)
		n, err := unix.Readlinkat(dirFd, path, linkBuf)
		if err != nil {
			return "", &os.PathError{Op: "readlinkat", Path: fullPath, Err: err}
		}
		runtime.KeepAlive(dir)
		if n != size {
			return string(linkBuf[:n]), nil
		}
		size *= 2
	}
}

// Faccessat is a thin wrapper around faccessat(2).
func Faccessat(dir Fd, path string, mode uint32, flags int) error {
	dirFd, fullPath := prepareAt(dir, path)
	if err := unix.Faccessat(dirFd, path, mode, flags); err != nil {
		return &os.PathError{Op: "faccessat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return nil
}

// Mkdirat is a thin wrapper around mkdirat(2).
func Mkdirat(dir Fd, path string, mode uint32) error {
	dirFd, fullPath := prepareAt(dir, path)
	if err := unix.Mkdirat(dirFd, path, mode); err != nil {
		return &os.PathError{Op: "mkdirat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return nil
}

// Mknodat is a thin wrapper around mknodat(2).
func Mknodat(dir Fd, path string, mode uint32, dev int) error {
	dirFd, fullPath := prepareAt(dir, path)
	if err := unix.Mknodat(dirFd, path, mode, dev); err != nil {
		return &os.PathError{Op: "mknodat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return nil
}

// Unlinkat is a thin wrapper around unlinkat(2).
func Unlinkat(dir Fd, path string, flags int) error {
	dirFd, fullPath := prepareAt(dir, path)
	if err := unix.Unlinkat(dirFd, path, flags); err != nil {
		return &os.PathError{Op: "unlinkat", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return nil
}

// Linkat is a thin wrapper around linkat(2).
func Linkat(oldDir Fd, oldPath string, newDir Fd, newPath string, flags int) error {
	oldDirFd, oldFullPath := prepareAt(oldDir, oldPath)
	newDirFd, newFullPath := prepareAt(newDir, newPath)
	if err := unix.Linkat(oldDirFd, oldPath, newDirFd, newPath, flags); err != nil {
		return &os.LinkError{Op: "linkat", Old: oldFullPath, New: newFullPath, Err: err}
	}
	runtime.KeepAlive(oldDir)
	runtime.KeepAlive(newDir)
	return nil
}

// Symlinkat is a thin wrapper around symlinkat(2). target is passed to the
// kernel verbatim -- it is never resolved or validated by pathguard.
func Symlinkat(target string, dir Fd, path string) error {
	dirFd, fullPath := prepareAt(dir, path)
	if err := unix.Symlinkat(target, dirFd, path); err != nil {
		return &os.LinkError{Op: "symlinkat", Old: target, New: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return nil
}

// Renameat2 is a thin wrapper around renameat2(2).
func Renameat2(oldDir Fd, oldPath string, newDir Fd, newPath string, flags uint) error {
	oldDirFd, oldFullPath := prepareAt(oldDir, oldPath)
	newDirFd, newFullPath := prepareAt(newDir, newPath)
	if err := unix.Renameat2(oldDirFd, oldPath, newDirFd, newPath, flags); err != nil {
		return &os.LinkError{Op: "renameat2", Old: oldFullPath, New: newFullPath, Err: err}
	}
	runtime.KeepAlive(oldDir)
	runtime.KeepAlive(newDir)
	return nil
}
