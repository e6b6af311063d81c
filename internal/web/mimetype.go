package web

import (
	"strings"
)

const (
	MimeTypeJSON      = "application/json"
	MimeTypeHTML      = "text/html"
	MimeTypeMultipart = "multipart/form-data"
	MimeTypeOctet     = "application/octet-stream"
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"
	DefaultUserAgent  = "DocAnalyzer/0.1"
)

// NewMimeType creates a MimeType from the given content-type.
func NewMimeType(contentType string) MimeType {
	ct := strings.Split(contentType, ";")[0]

	return MimeType{value: strings.TrimSpace(strings.ToLower(ct))}
}

type MimeType struct {
	value string
}

// IsJSON returns true for application/json and +json suffixed types.
func (m MimeType) IsJSON() bool {
	return m.value == MimeTypeJSON || strings.HasSuffix(m.value, "+json")
}

func (m MimeType) IsHTML() bool {
	return m.value == MimeTypeHTML || m.value == "application/xhtml+xml"
}

// IsEmpty returns true if no content-type was sent.
func (m MimeType) IsEmpty() bool {
	return m.value == ""
}

// Raw returns the extracted mime-type.
func (m MimeType) Raw() string {
	return m.value
}
