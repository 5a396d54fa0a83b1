package mcp

import (
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MimeTypeForSource returns the MIME type of a corpus file name,
// "application/octet-stream" for unknown types.
func MimeTypeForSource(name string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// isText reports whether a MIME type is returned as text rather than blob.
func isText(mime string) bool {
	return strings.HasPrefix(mime, "text/")
}
