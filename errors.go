// Copyright (C) 2024-2026 The pathguard Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package pathguard

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/pathguard/pathguard/internal/lexical"
)

// ErrorKind classifies an [Error] into one of a small set of buckets a
// caller is expected to actually branch on. It is a thin layer over the
// same sentinel errors produced by the syscall layer and the resolvers --
// it never replaces errors.Is/errors.As, only summarizes them.
type ErrorKind int

const (
	KindInvalidArgument ErrorKind = iota
	KindNotFound
	KindNotADirectory
	KindIsADirectory
	KindExists
	KindTooManyLinks
	KindLoop
	KindXDev
	KindSafetyViolation
	KindOsError
	KindNotSupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindNotADirectory:
		return "NotADirectory"
	case KindIsADirectory:
		return "IsADirectory"
	case KindExists:
		return "Exists"
	case KindTooManyLinks:
		return "TooManyLinks"
	case KindLoop:
		return "Loop"
	case KindXDev:
		return "XDev"
	case KindSafetyViolation:
		return "SafetyViolation"
	case KindOsError:
		return "OsError"
	case KindNotSupported:
		return "NotSupported"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error wraps an underlying syscall/resolver error with a classification
// and a best-effort POSIX errno, per the taxonomy in the design doc.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
	// Diagnostic, when non-empty, is a best-effort lexical approximation of
	// the path this operation was resolving, computed via internal/lexical.
	// It is purely descriptive -- never re-derive a security decision from
	// it, only print it.
	Diagnostic string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Kind, e.Err)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Diagnostic != "" {
		msg = fmt.Sprintf("%s (near %s)", msg, e.Diagnostic)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errno returns the best-effort POSIX errno this Error corresponds to, per
// the Kind→errno mapping in the design doc. It returns 0 if no sensible
// errno applies (which should not happen for a well-formed Error).
func (e *Error) Errno() unix.Errno {
	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	switch e.Kind {
	case KindInvalidArgument:
		return unix.EINVAL
	case KindNotFound:
		return unix.ENOENT
	case KindNotADirectory:
		return unix.ENOTDIR
	case KindIsADirectory:
		return unix.EISDIR
	case KindExists:
		return unix.EEXIST
	case KindTooManyLinks, KindLoop:
		return unix.ELOOP
	case KindXDev, KindSafetyViolation:
		return unix.EXDEV
	case KindNotSupported:
		return unix.ENOSYS
	default:
		return 0
	}
}

// classify wraps err into an *Error, inferring Kind from the sentinel
// errors produced throughout the syscall and resolver layers. A nil err
// classifies to nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *Error
	if errors.As(err, &pgErr) {
		return err
	}

	kind := KindOsError
	switch {
	case errors.Is(err, errInvalidMode), errors.Is(err, errInvalidArgument), errors.Is(err, unix.EINVAL):
		kind = KindInvalidArgument
	case errors.Is(err, errNotExist), errors.Is(err, unix.ENOENT):
		kind = KindNotFound
	case errors.Is(err, unix.ENOTDIR):
		kind = KindNotADirectory
	case errors.Is(err, unix.EISDIR):
		kind = KindIsADirectory
	case errors.Is(err, unix.EEXIST):
		kind = KindExists
	case errors.Is(err, unix.ELOOP):
		kind = KindLoop
	case errors.Is(err, unix.EXDEV):
		kind = KindSafetyViolation
	case errors.Is(err, unix.ENOSYS):
		kind = KindNotSupported
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// classifyAt is [classify] plus a best-effort diagnostic path, computed
// purely lexically against rootPath -- useful only for the human-readable
// error message, never for any further safety decision.
func classifyAt(op, rootPath, unsafePath string, err error) error {
	classified := classify(op, err)
	if classified == nil {
		return nil
	}
	pgErr, ok := classified.(*Error)
	if !ok {
		return classified
	}
	if diag, derr := lexical.Join(rootPath, unsafePath); derr == nil {
		pgErr.Diagnostic = diag
	}
	return pgErr
}

var errInvalidMode = errors.New("invalid permission mode")
var errInvalidArgument = errors.New("invalid argument")
var errNotExist = errors.New("path does not exist")

// IsNotExist reports whether err indicates that the target path (or one of
// its components) doesn't exist, mirroring [os.IsNotExist] but also
// catching the ENOTDIR cases the kernel sometimes substitutes for ENOENT.
func IsNotExist(err error) bool {
	return errors.Is(err, errNotExist) ||
		errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ENOTDIR)
}
