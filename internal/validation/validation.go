// Package validation holds the input guards shared by readers of
// user-supplied files: a package size cap and magic-byte sniffing for
// the container formats lancet touches.
package validation

import "bytes"

// MaxFileSize caps how much of a package the editor will read (256 MB).
// Oversized files are rejected before the zip layer sees them.
const MaxFileSize = 256 << 20

// Magic prefixes of the binary containers lancet reads: zip packages and
// xz-compressed transcripts.
var (
	zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}
	xzMagic  = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// IsZipData reports whether data starts with the zip local file header.
func IsZipData(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// IsXZData reports whether data starts with the xz stream header.
func IsXZData(data []byte) bool {
	return bytes.HasPrefix(data, xzMagic)
}
