// Package metadata reads the capture time and content hash of media files and
// attaches them to records as they pass through the metadata stage.
//
// FileExtractor sniffs the container from the file header rather than trusting
// the extension: JPEG and TIFF go through EXIF, ISO base media files (MP4, MOV,
// 3GP) through the movie header box, and HEIF images through the EXIF block
// embedded in the item data. Anything else yields a hash but no capture time.
package metadata
