package constants

import "strings"

// Format is the coarse document format the reader selects on.
type Format string

const (
	PDF     Format = "PDF"
	TXT     Format = "TXT"
	UNKNOWN Format = "UNKNOWN"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a (normalized or raw) extension to a Format.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt", "text", "md":
		return TXT
	default:
		return UNKNOWN
	}
}
