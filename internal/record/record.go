// Package record defines the unit of work that flows through the pipeline: one
// media file plus everything learned about it along the way.
package record

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ErrDestinationSet is returned when a destination is assigned twice.
var ErrDestinationSet = errors.New("destination already set")

// Record describes one media file. Fields are written by exactly one stage at
// a time as the record is handed down the pipeline, so no locking is needed.
type Record struct {
	sourcePath   string
	size         int64
	creationTime time.Time
	modifiedTime time.Time

	captureTime time.Time
	hash        []byte

	destination    string
	destinationSet bool
}

// New builds a record for the file at path. A modification time before the
// sentinel is a placeholder, so the creation time is used in its place.
func New(path string, created, modified time.Time, size int64, sentinel time.Time) *Record {
	if modified.Before(sentinel) {
		modified = created
	}
	return &Record{
		sourcePath:   filepath.Clean(path),
		size:         size,
		creationTime: created,
		modifiedTime: modified,
	}
}

// SourcePath returns the absolute path the record was discovered at.
func (r *Record) SourcePath() string { return r.sourcePath }

// Ext returns the original file extension including the dot, case preserved.
func (r *Record) Ext() string { return filepath.Ext(r.sourcePath) }

// Size returns the file size in bytes observed during the scan.
func (r *Record) Size() int64 { return r.size }

// CreationTime returns the filesystem creation time.
func (r *Record) CreationTime() time.Time { return r.creationTime }

// ModifiedTime returns the modification time after sentinel correction.
func (r *Record) ModifiedTime() time.Time { return r.modifiedTime }

// SetMetadata stores the content hash and, when it is strictly after the
// sentinel, the capture time. A nil capture leaves the record without one.
func (r *Record) SetMetadata(capture *time.Time, hash []byte, sentinel time.Time) {
	r.hash = hash
	if capture != nil && capture.After(sentinel) {
		r.captureTime = *capture
	}
}

// HasCaptureDate reports whether embedded metadata supplied a usable capture time.
func (r *Record) HasCaptureDate() bool { return !r.captureTime.IsZero() }

// CaptureDate returns the capture time, or the zero time when absent.
func (r *Record) CaptureDate() time.Time { return r.captureTime }

// Hash returns the SHA-256 of the file contents, or nil before metadata resolution.
func (r *Record) Hash() []byte { return r.hash }

// EffectiveDate is the capture time when known, otherwise the modification time.
func (r *Record) EffectiveDate() time.Time {
	if r.HasCaptureDate() {
		return r.captureTime
	}
	return r.modifiedTime
}

// SetDestination assigns the relocation target. It may be called once; an
// empty path records an explicit decision not to relocate.
func (r *Record) SetDestination(path string) error {
	if r.destinationSet {
		return fmt.Errorf("%w: %s", ErrDestinationSet, r.sourcePath)
	}
	r.destination = path
	r.destinationSet = true
	return nil
}

// Destination returns the relocation target, or "" when the file stays put.
func (r *Record) Destination() string { return r.destination }

// HasDestination reports whether a non-empty destination was assigned.
func (r *Record) HasDestination() bool { return r.destination != "" }
