package domain

// RawDocument represents opaque bytes received at the input boundary
// (a file on disk, an HTTP upload, an MCP tool call).
type RawDocument struct {
	// ID is the caller-chosen document ID. Empty means one is generated.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Namespace partitions the vector store.
	Namespace string

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]string
}
