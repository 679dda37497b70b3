package constants

import "strings"

// Source formats accepted by the analysis pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// MimeTypes maps normalized extensions to the content type sent to the
// document AI backend.
var MimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapMimeToFormat classifies a declared content type as PDF or IMAGE.
// Unknown types return "".
func MapMimeToFormat(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mt == "application/pdf" || mt == "pdf":
		return PDF
	case strings.HasPrefix(mt, "image/") || mt == "jpg" || mt == "jpeg" || mt == "png":
		return IMAGE
	default:
		return ""
	}
}
