// Copyright (C) 2014-2015 Docker Inc & Go Authors. All rights reserved.
// Copyright (C) 2017-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lexical provides a pure-string, Lstat-based approximation of
// in-root symlink resolution. It predates the fd-based resolver
// (internal/opath, internal/openat2res) and is kept only for producing
// human-readable diagnostic paths -- error messages, logs, test fixtures --
// where a plausible "expected path" string is useful. It is never the
// authority for any security-relevant decision: a result from this package
// must never be used to decide whether a resolution is safe, only to
// describe one that an fd-based resolver already made.
package lexical

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrSymlinkLoop is returned once too many symlinks have been evaluated.
var ErrSymlinkLoop = errors.New("lexical.Join: too many links")

const maxSymlinkLimit = 255

// Join approximates joining root and unsafePath the way a chroot would,
// evaluating symlinks purely lexically against the real filesystem via
// os.Lstat/os.Readlink. Unlike the fd-based resolvers, this can be fooled by
// a concurrent rename or symlink swap between each Lstat and the next -- it
// exists purely to produce a diagnostic string, not a safe handle.
func Join(root, unsafePath string) (string, error) {
	var built bytes.Buffer
	n := 0
	for unsafePath != "" {
		if n > maxSymlinkLimit {
			return "", ErrSymlinkLoop
		}

		var part string
		if i := strings.IndexRune(unsafePath, filepath.Separator); i == -1 {
			part, unsafePath = unsafePath, ""
		} else {
			part, unsafePath = unsafePath[:i], unsafePath[i+1:]
		}

		cleanPart := filepath.Clean(string(filepath.Separator) + built.String() + part)
		if cleanPart == string(filepath.Separator) {
			built.Reset()
			continue
		}
		fullPart := filepath.Clean(root + cleanPart)

		fi, err := os.Lstat(fullPart)
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		if os.IsNotExist(err) || fi.Mode()&os.ModeSymlink == 0 {
			built.WriteString(part)
			built.WriteRune(filepath.Separator)
			continue
		}

		n++
		dest, err := os.Readlink(fullPart)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(dest) {
			built.Reset()
		}
		unsafePath = dest + string(filepath.Separator) + unsafePath
	}

	full := filepath.Clean(string(filepath.Separator) + built.String())
	return filepath.Clean(root + full), nil
}
