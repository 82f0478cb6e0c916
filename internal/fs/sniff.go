package fs

import "bytes"

// SniffLen is the number of leading bytes SniffImageType needs.
const SniffLen = 64

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// SniffImageType detects the image format from the leading bytes of a file
// and returns the canonical extension, or "" when the content is not a
// supported image.
func SniffImageType(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg"
	case bytes.HasPrefix(head, pngSignature):
		return ".png"
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return ".gif"
	case len(head) >= 12 && bytes.HasPrefix(head, []byte("RIFF")) && bytes.Contains(head[8:min(len(head), 16)], []byte("WEBP")):
		return ".webp"
	}
	return ""
}
