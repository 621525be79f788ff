// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// createInTree materializes one tree entry, in the same tiny DSL the
// teacher's own test helpers use:
//
//	dir <name>
//	file <name> <?content>
//	symlink <name> <target>
func createInTree(t *testing.T, root, spec string) {
	t.Helper()
	f := strings.Fields(spec)
	if len(f) < 2 {
		t.Fatalf("invalid spec %q", spec)
	}
	inoType, subPath, f := f[0], f[1], f[2:]
	fullPath := filepath.Join(root, subPath)
	switch inoType {
	case "dir":
		require.NoError(t, os.MkdirAll(fullPath, 0o755))
	case "file":
		var contents []byte
		if len(f) >= 1 {
			contents = []byte(strings.Join(f, " "))
		}
		require.NoError(t, os.WriteFile(fullPath, contents, 0o644))
	case "symlink":
		if len(f) < 1 {
			t.Fatalf("invalid spec %q", spec)
		}
		require.NoError(t, os.Symlink(f[0], fullPath))
	default:
		t.Fatalf("invalid spec %q: unknown inode type %q", spec, inoType)
	}
}

// createTree builds a fresh temporary root directory populated per specs,
// and returns the path to it.
func createTree(t *testing.T, specs ...string) string {
	t.Helper()
	base := t.TempDir()
	treeRoot := filepath.Join(base, "tree")
	require.NoError(t, os.MkdirAll(treeRoot, 0o755))
	for _, spec := range specs {
		createInTree(t, treeRoot, spec)
	}
	return treeRoot
}

// openTreeRoot opens path as a [Root], failing the test on error.
func openTreeRoot(t *testing.T, path string) *Root {
	t.Helper()
	root, err := OpenRoot(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return root
}
