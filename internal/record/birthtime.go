package record

import (
	"io/fs"
	"time"
)

// BirthTime returns the creation time of the file at path. When the platform
// or filesystem cannot report one, the modification time from info is used.
func BirthTime(path string, info fs.FileInfo) time.Time {
	if t, ok := birthTime(path); ok {
		return t
	}
	if info == nil {
		return time.Time{}
	}
	return info.ModTime()
}
