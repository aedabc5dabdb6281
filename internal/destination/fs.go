package destination

import (
	"crypto/sha256"
	"errors"
	"io"
	"io/fs"

	"github.com/spf13/afero"
)

// FSExists reports existence through fsys. Any Lstat error other than
// not-exist is treated as occupied so the resolver never picks a path it
// cannot inspect.
func FSExists(fsys afero.Fs) ExistsFunc {
	return func(path string) bool {
		_, err := lstat(fsys, path)
		return err == nil || !isNotExist(err)
	}
}

// FSHash hashes files read through fsys.
func FSHash(fsys afero.Fs) HashFunc {
	return func(path string) ([]byte, error) {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return nil, err
		}
		return h.Sum(nil), nil
	}
}

func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
