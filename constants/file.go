package constants

import "strings"

// DefaultExtension is used for any content type missing from ContentTypeExtensions.
const DefaultExtension = "jpg"

// ArchiveExtension is appended to the archive name when a batch is saved.
const ArchiveExtension = "zip"

// ContentTypeExtensions is the fixed lookup from a fetched receipt's media type to a file extension.
var ContentTypeExtensions = map[string]string{
	"image/png":       "png",
	"application/pdf": "pdf",
}

// NormalizeContentType drops media type parameters and lowercases the rest.
func NormalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
