package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// CopyFile streams src to dst through fsys with SHA256 + size integrity
// verification. dst is created exclusively so an existing file is never
// clobbered; the partial copy is removed on any failure. The source
// modification time is carried over.
func CopyFile(fsys afero.Fs, src, dst string) (int64, error) {
	srcInfo, err := fsys.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return 0, fmt.Errorf("copy %s: not a regular file", src)
	}

	in, err := fsys.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return 0, err
	}
	written, err := copyVerified(out, in, srcInfo.Size())
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = fsys.Remove(dst)
		return 0, err
	}

	mtime := srcInfo.ModTime()
	if err := fsys.Chtimes(dst, mtime, mtime); err != nil {
		return written, fmt.Errorf("preserve modification time: %w", err)
	}
	return written, nil
}

func copyVerified(out io.Writer, in io.Reader, size int64) (int64, error) {
	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return written, err
	}
	if written != size {
		return written, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", size, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return written, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return written, nil
}

// MoveFile renames src to dst, falling back to copy and remove when the two
// paths are on different devices. It refuses to replace an existing dst.
func MoveFile(fsys afero.Fs, src, dst string) (int64, error) {
	info, err := fsys.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if Exists(fsys, dst) {
		return 0, &fs.PathError{Op: "move", Path: dst, Err: fs.ErrExist}
	}

	err = fsys.Rename(src, dst)
	if err == nil {
		return info.Size(), nil
	}
	if !isCrossDevice(err) {
		return 0, err
	}

	written, err := CopyFile(fsys, src, dst)
	if err != nil {
		return 0, fmt.Errorf("cross-device copy: %w", err)
	}
	if err := fsys.Remove(src); err != nil {
		return written, fmt.Errorf("remove source after copy: %w", err)
	}
	return written, nil
}

// Exists reports whether path is present, following afero's Lstat when the
// filesystem supports it.
func Exists(fsys afero.Fs, path string) bool {
	var err error
	if l, ok := fsys.(afero.Lstater); ok {
		_, _, err = l.LstatIfPossible(path)
	} else {
		_, err = fsys.Stat(path)
	}
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
