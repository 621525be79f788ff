// Copyright (C) 2024-2026 The pathguard Authors.
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

// Openat2 is a thin wrapper around openat2(2). Callers are responsible for
// setting how.Resolve and how.Flags; O_CLOEXEC is enforced unconditionally.
func Openat2(dir Fd, path string, how *unix.OpenHow) (*os.File, error) {
	dirFd, fullPath := prepareAt(dir, path)
	how.Flags |= unix.O_CLOEXEC
	sysFd, err := unix.Openat2(dirFd, path, how)
	if err != nil {
		return nil, &os.PathError{Op: "openat2", Path: fullPath, Err: err}
	}
	runtime.KeepAlive(dir)
	return os.NewFile(uintptr(sysFd), filepath.Clean(fullPath)), nil
}
