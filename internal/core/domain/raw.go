package domain

// RawDocument is an upload as received from the surrounding application:
// bytes, the declared MIME type and the original filename.
type RawDocument struct {
	// Content is the raw file bytes.
	Content []byte

	// MIMEType is the declared content type. May be empty or generic.
	MIMEType string

	// Filename is the original filename, used for extension fallback.
	Filename string
}

// Extension returns the lower-cased filename extension without the dot.
func (r *RawDocument) Extension() string {
	return FileExtension(r.Filename)
}
