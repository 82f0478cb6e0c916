package fs

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"albumd/internal/album"
)

const (
	// MaxSegmentLen bounds folder path segments and filenames.
	MaxSegmentLen = 120
)

var tokenRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// imageExts is the extension allow-list, lowercase with leading dot.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ValidateToken checks a flat album token and returns it trimmed.
func ValidateToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if !tokenRe.MatchString(token) {
		return "", album.Errorf(album.ErrInvalidInput, "invalid token %q", token)
	}
	return token, nil
}

// ValidatePath checks a slash-separated folder path and returns it with
// surrounding whitespace and slashes removed and each segment trimmed.
func ValidatePath(raw string) (string, error) {
	p := strings.Trim(strings.TrimSpace(raw), "/")
	if p == "" {
		return "", album.Errorf(album.ErrInvalidInput, "empty path")
	}
	parts := strings.Split(p, "/")
	for i, seg := range parts {
		seg = strings.TrimSpace(seg)
		if !validSegment(seg) {
			return "", album.Errorf(album.ErrInvalidInput, "invalid path segment %q", seg)
		}
		parts[i] = seg
	}
	return strings.Join(parts, "/"), nil
}

// ValidateFilename checks a bare filename and returns it trimmed.
// Hidden names are rejected so sidecar files can never be addressed.
func ValidateFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !validSegment(name) || strings.HasPrefix(name, ".") {
		return "", album.Errorf(album.ErrInvalidInput, "invalid filename %q", name)
	}
	return name, nil
}

// validSegment reports whether s is usable as a single path component.
// Leading dots are rejected so hidden sidecar directories stay unreachable.
func validSegment(s string) bool {
	if s == "" || len(s) > MaxSegmentLen || s == "." || s == ".." || strings.HasPrefix(s, ".") {
		return false
	}
	for _, r := range s {
		if r == '/' || r == '\\' || r == 0 || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// IsImageName reports whether name carries an allowed image extension.
// The comparison is case-insensitive.
func IsImageName(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// IsImageExt reports whether ext (with leading dot) is an allowed image extension.
func IsImageExt(ext string) bool {
	return imageExts[strings.ToLower(ext)]
}

// IsHidden reports whether a directory entry is hidden from listings.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
