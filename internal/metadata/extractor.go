package metadata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abema/go-mp4"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

// ErrUnsupported is returned when the file header matches no known container.
var ErrUnsupported = errors.New("unsupported container")

// heifExifScanLimit bounds how far into a HEIF file the EXIF block is searched.
const heifExifScanLimit = 4 << 20

var (
	exifHeader = []byte("Exif\x00\x00")
	// mp4Epoch is the ISO base media file format time origin.
	mp4Epoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Metadata is what an Extractor learned about one file.
type Metadata struct {
	// CaptureTime is nil when the file carries no capture timestamp.
	CaptureTime *time.Time
	Hash        []byte
}

// Extractor reads metadata for the file at path. On failure the returned
// Metadata may still carry the content hash.
type Extractor interface {
	Extract(ctx context.Context, path string) (Metadata, error)
}

type container int

const (
	containerUnknown container = iota
	containerJPEG
	containerTIFF
	containerISOBMFF
	containerHEIF
)

// FileExtractor hashes files with SHA-256 and reads capture times from EXIF
// and MP4 movie headers.
type FileExtractor struct {
	fs afero.Fs
}

// NewFileExtractor returns an extractor reading from fsys.
func NewFileExtractor(fsys afero.Fs) *FileExtractor {
	return &FileExtractor{fs: fsys}
}

// Extract implements Extractor.
func (e *FileExtractor) Extract(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	file, err := e.fs.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Metadata{}, fmt.Errorf("hash %s: %w", path, err)
	}
	md := Metadata{Hash: hasher.Sum(nil)}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return md, fmt.Errorf("rewind %s: %w", path, err)
	}
	header := make([]byte, 12)
	n, _ := io.ReadFull(file, header)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return md, fmt.Errorf("rewind %s: %w", path, err)
	}

	var capture time.Time
	switch sniff(header[:n]) {
	case containerJPEG, containerTIFF:
		capture, err = exifCaptureTime(file)
	case containerISOBMFF:
		capture, err = movieCaptureTime(file)
	case containerHEIF:
		capture, err = heifCaptureTime(file)
	default:
		return md, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	if err != nil {
		return md, fmt.Errorf("read capture time from %s: %w", path, err)
	}
	if !capture.IsZero() {
		md.CaptureTime = &capture
	}
	return md, nil
}

func sniff(header []byte) container {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return containerJPEG
	case bytes.HasPrefix(header, []byte("II*\x00")), bytes.HasPrefix(header, []byte("MM\x00*")):
		return containerTIFF
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
			return containerHEIF
		default:
			return containerISOBMFF
		}
	default:
		return containerUnknown
	}
}

// exifCaptureTime returns DateTimeOriginal (or DateTime) with its wall clock
// read as UTC. A decodable file without either tag yields the zero time.
func exifCaptureTime(r io.Reader) (time.Time, error) {
	x, err := exif.Decode(r)
	if x == nil {
		return time.Time{}, err
	}
	stamp, dtErr := x.DateTime()
	if dtErr != nil {
		if exif.IsTagNotPresentError(dtErr) {
			return time.Time{}, nil
		}
		return time.Time{}, dtErr
	}
	return asUTC(stamp), nil
}

func movieCaptureTime(r io.ReadSeeker) (time.Time, error) {
	boxes, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return time.Time{}, err
	}
	for _, box := range boxes {
		mvhd, ok := box.Payload.(*mp4.Mvhd)
		if !ok {
			continue
		}
		seconds := mvhd.GetCreationTime()
		if seconds == 0 {
			return time.Time{}, nil
		}
		return mp4Epoch.Add(time.Duration(seconds) * time.Second), nil
	}
	return time.Time{}, nil
}

func heifCaptureTime(r io.Reader) (time.Time, error) {
	data, err := io.ReadAll(io.LimitReader(r, heifExifScanLimit))
	if err != nil {
		return time.Time{}, err
	}
	idx := bytes.Index(data, exifHeader)
	if idx < 0 {
		return time.Time{}, nil
	}
	return exifCaptureTime(bytes.NewReader(data[idx:]))
}

func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
