// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs holds the one filesystem primitive the rest of the tree
// actually calls: an atomic rename of a single file, with a copy-based
// fallback for the cross-device case. It started as a full copy of
// golang-dep's own internal/fs package; this resolver only ever
// installs one lockfile at a time (there is no vendor tree to rename
// wholesale), so the directory-copy branch, path-prefix comparisons,
// and the Go-1.7-era rename shim were all trimmed along with it.
package fs

import (
	"io"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// RenameWithFallback attempts to rename a file, but falls back to
// copying in the event of a cross-device link error. If the fallback
// copy succeeds, src is still removed, emulating normal rename
// behavior.
func RenameWithFallback(src, dst string) error {
	_, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}

	return renameFallback(err, src, dst)
}

// renameFallback attempts to determine the appropriate fallback to a failed
// rename operation depending on the resulting error. It only recognizes the
// cross-device link error as reported on Unix-like systems; this module
// targets those, not Windows, so no ERROR_NOT_SAME_DEVICE handling is kept.
func renameFallback(err error, src, dst string) error {
	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	} else if terr.Err != syscall.EXDEV {
		return errors.Wrapf(terr, "link error: cannot rename %s to %s", src, dst)
	}

	if cerr := copyFile(src, dst); cerr != nil {
		return errors.Wrapf(cerr, "rename fallback failed: cannot rename %s to %s", src, dst)
	}
	return errors.Wrapf(os.Remove(src), "cannot delete %s", src)
}

// copyFile copies the contents of the file named src to the file named
// by dst. The file will be created if it does not already exist. If the
// destination file exists, all its contents will be replaced by the contents
// of the source file. The file mode will be copied from the source and
// the copied data is synced/flushed to stable storage.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return
	}

	if err = out.Sync(); err != nil {
		return
	}

	si, err := os.Stat(src)
	if err != nil {
		return
	}

	err = os.Chmod(dst, si.Mode())

	return
}
