package fileutil_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"mediasort/internal/fileutil"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fsys.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestCopyFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	writeFile(t, fsys, "/src/a.jpg", "hello world", mtime)

	written, err := fileutil.CopyFile(fsys, "/src/a.jpg", "/dst/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(len("hello world")) {
		t.Fatalf("unexpected byte count %d", written)
	}
	got, err := afero.ReadFile(fsys, "/dst/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := fsys.Stat("/dst/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("expected modification time %s, got %s", mtime, info.ModTime())
	}
	if _, err := fsys.Stat("/src/a.jpg"); err != nil {
		t.Fatalf("expected source to remain: %v", err)
	}
}

func TestCopyFileRefusesExistingDestination(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Now()
	writeFile(t, fsys, "/src/a.jpg", "new", now)
	writeFile(t, fsys, "/dst/a.jpg", "old", now)

	if _, err := fileutil.CopyFile(fsys, "/src/a.jpg", "/dst/a.jpg"); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	got, _ := afero.ReadFile(fsys, "/dst/a.jpg")
	if string(got) != "old" {
		t.Fatalf("destination clobbered: %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if _, err := fileutil.CopyFile(fsys, "/nope", "/dst"); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	fsys := afero.NewOsFs()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	writeFile(t, fsys, src, "data", time.Now())

	written, err := fileutil.MoveFile(fsys, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if written != 4 {
		t.Fatalf("unexpected byte count %d", written)
	}
	if fileutil.Exists(fsys, src) {
		t.Fatal("expected source removed")
	}
	if !fileutil.Exists(fsys, dst) {
		t.Fatal("expected destination present")
	}
}

func TestMoveFileRefusesExistingDestination(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Now()
	writeFile(t, fsys, "/src/a.jpg", "new", now)
	writeFile(t, fsys, "/dst/a.jpg", "old", now)

	if _, err := fileutil.MoveFile(fsys, "/src/a.jpg", "/dst/a.jpg"); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	if !fileutil.Exists(fsys, "/src/a.jpg") {
		t.Fatal("expected source to remain")
	}
}
