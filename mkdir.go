// Copyright (C) 2024 SUSE LLC. All rights reserved.
// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/fd"
	"github.com/pathguard/pathguard/internal/gocompat"
	"github.com/pathguard/pathguard/internal/procfs"
)

// MkdirAll is a race-safe alternative to os.MkdirAll: every directory in
// unsafePath is guaranteed to have been created without ever walking
// outside the root, even if an attacker is concurrently renaming
// directories into and out of the tree being built. It returns a [Handle]
// to the final directory, obtained without a second, separate resolution.
func (r *Root) MkdirAll(unsafePath string, mode int) (*Handle, error) {
	if mode&^0o7777 != 0 {
		return nil, classify("mkdir_all", fmt.Errorf("%w for mkdir 0o%.3o", errInvalidMode, mode))
	}

	currentDir, remainingPath, err := r.partialLookup(unsafePath)
	if err != nil {
		return nil, classify("mkdir_all", fmt.Errorf("find existing subpath of %q: %w", unsafePath, err))
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			currentDir.Close() //nolint:errcheck
		}
	}()

	if err := procfs.IsDeadInode(currentDir); err != nil {
		return nil, classify("mkdir_all", fmt.Errorf("finding existing subpath of %q: %w", unsafePath, err))
	}
	stat, err := fd.Fstat(currentDir)
	if err != nil {
		return nil, classify("mkdir_all", fmt.Errorf("stat existing subpath handle: %w", err))
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		return nil, classify("mkdir_all", &os.PathError{Op: "mkdir_all", Path: unsafePath, Err: unix.ENOTDIR})
	}

	remainingParts := strings.Split(remainingPath, string(filepath.Separator))
	if gocompat.SlicesContains(remainingParts, "..") {
		// Resolving ".." safely inside a not-yet-created tree would need
		// its own extra machinery for something that it's unclear even
		// needs supporting -- reject rather than guess.
		return nil, classify("mkdir_all", fmt.Errorf("%w: yet-to-be-created path %q contains '..' components", errInvalidArgument, remainingPath))
	}

	for _, part := range remainingParts {
		switch part {
		case "", ".":
			continue
		}
		if err := fd.Mkdirat(currentDir, part, uint32(mode)); err != nil && !errors.Is(err, unix.EEXIST) {
			if derr := procfs.IsDeadInode(currentDir); derr != nil {
				return nil, classify("mkdir_all", fmt.Errorf("%w (%w)", err, derr))
			}
			return nil, classify("mkdir_all", err)
		}
		// On EEXIST another racer may have already created this component
		// (Testable Property 3): open it and confirm it's actually a
		// directory rather than treating the race loss as fatal.
		nextDir, err := fd.Openat(currentDir, part, unix.O_PATH|unix.O_NOFOLLOW|unix.O_DIRECTORY, 0)
		if err != nil {
			if errors.Is(err, unix.ENOTDIR) {
				return nil, classify("mkdir_all", &os.PathError{Op: "mkdir_all", Path: part, Err: unix.ENOTDIR})
			}
			return nil, classify("mkdir_all", err)
		}
		currentDir.Close() //nolint:errcheck
		currentDir = nextDir
	}

	closeOnErr = false
	return &Handle{inner: currentDir}, nil
}
