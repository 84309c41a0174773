// Package core provides the execution model types for droid-harness.
package core

// Attachment represents a debug artifact captured during a test
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot
	ContentType string `json:"contentType"` // MIME type: image/png
	Path        string `json:"path"`        // File path relative to the artifact root
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

const (
	AttachmentScreenshot = "screenshot"
	ContentTypePNG       = "image/png"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// BlobWriter persists artifacts (screenshots, reports).
// Paths are slash-separated and relative to the writer's root.
type BlobWriter interface {
	EnsureDir(path string) error
	WriteFile(path string, data []byte) error
}

// NullBlobWriter discards everything.
type NullBlobWriter struct{}

// EnsureDir is a no-op.
func (NullBlobWriter) EnsureDir(string) error { return nil }

// WriteFile is a no-op.
func (NullBlobWriter) WriteFile(string, []byte) error { return nil }
