package testsupport

import (
	"bytes"
	"encoding/binary"
	"time"
)

// TIFFWithDateTime returns a minimal little-endian TIFF whose IFD0 carries a
// DateTime tag holding stamp's wall clock.
func TIFFWithDateTime(stamp time.Time) []byte {
	value := append([]byte(stamp.Format("2006:01:02 15:04:05")), 0)

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II*\x00")
	_ = binary.Write(&buf, le, uint32(8))
	_ = binary.Write(&buf, le, uint16(1))
	_ = binary.Write(&buf, le, uint16(0x0132))
	_ = binary.Write(&buf, le, uint16(2))
	_ = binary.Write(&buf, le, uint32(len(value)))
	_ = binary.Write(&buf, le, uint32(8+2+12+4))
	_ = binary.Write(&buf, le, uint32(0))
	buf.Write(value)
	return buf.Bytes()
}

// JPEGWithCaptureTime returns a JPEG stream whose APP1 segment carries an EXIF
// DateTime of stamp, followed by payload so distinct files hash differently.
func JPEGWithCaptureTime(stamp time.Time, payload string) []byte {
	exifBlock := append([]byte("Exif\x00\x00"), TIFFWithDateTime(stamp)...)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exifBlock)+2))
	buf.Write(exifBlock)
	buf.Write([]byte{0xFF, 0xFE})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.WriteString(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// JPEGWithoutExif returns a JPEG stream with no APP1 segment.
func JPEGWithoutExif(payload string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xFE})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.WriteString(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// MP4WithCreationTime returns an ftyp box followed by a moov box holding a
// version 0 mvhd whose creation time is stamp.
func MP4WithCreationTime(stamp time.Time) []byte {
	be := binary.BigEndian
	var buf bytes.Buffer

	_ = binary.Write(&buf, be, uint32(16))
	buf.WriteString("ftypisom")
	_ = binary.Write(&buf, be, uint32(0x200))

	epoch := time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	created := uint32(stamp.Sub(epoch) / time.Second)

	const mvhdSize = 108
	_ = binary.Write(&buf, be, uint32(8+mvhdSize))
	buf.WriteString("moov")
	_ = binary.Write(&buf, be, uint32(mvhdSize))
	buf.WriteString("mvhd")
	_ = binary.Write(&buf, be, uint32(0)) // version + flags
	_ = binary.Write(&buf, be, created)
	_ = binary.Write(&buf, be, created)
	_ = binary.Write(&buf, be, uint32(1000))      // timescale
	_ = binary.Write(&buf, be, uint32(0))         // duration
	_ = binary.Write(&buf, be, int32(0x00010000)) // rate
	_ = binary.Write(&buf, be, int16(0x0100))     // volume
	buf.Write(make([]byte, 2+8))                  // reserved
	matrix := [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	_ = binary.Write(&buf, be, matrix)
	buf.Write(make([]byte, 24)) // pre_defined
	_ = binary.Write(&buf, be, uint32(2))
	return buf.Bytes()
}

// HEIFWithCaptureTime returns a HEIF-branded ftyp box followed by an opaque
// item payload containing an EXIF block with stamp.
func HEIFWithCaptureTime(stamp time.Time) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(16))
	buf.WriteString("ftypheic")
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write(make([]byte, 64))
	buf.WriteString("Exif\x00\x00")
	buf.Write(TIFFWithDateTime(stamp))
	return buf.Bytes()
}
