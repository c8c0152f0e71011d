package domain

import (
	"io"
	"math"
	"time"
)

// DefaultChunkSize is the fixed chunk size of the resumable upload endpoint.
const DefaultChunkSize = 6 << 20 // 6MB

// UploadFile is a binary file handed to the uploader.
type UploadFile struct {
	// Name is the original file name, used only for logging
	Name string

	// ContentType is the MIME type stored with the object
	ContentType string

	// Size is the total length in bytes
	Size int64

	// Body provides random access to the content
	Body io.ReaderAt
}

// Empty returns true if there is nothing to upload.
func (f UploadFile) Empty() bool {
	return f.Body == nil || f.Size <= 0
}

// UploadSession is the resume state for one chunked upload.
// It is saved after each acknowledged chunk and removed on success.
type UploadSession struct {
	// Fingerprint identifies the (file, destination) pair
	Fingerprint string `json:"fingerprint"`

	// ObjectName is the destination path within the bucket
	ObjectName string `json:"object_name"`

	// Bucket is the destination bucket
	Bucket string `json:"bucket"`

	// ContentType is the MIME type stored with the object
	ContentType string `json:"content_type"`

	// UploadURL is the server-side handle of the upload (tus upload URL or
	// S3 multipart upload id)
	UploadURL string `json:"upload_url"`

	// ChunkSize is the chunk size used for this session
	ChunkSize int64 `json:"chunk_size"`

	// BytesUploaded is the last acknowledged byte offset
	BytesUploaded int64 `json:"bytes_uploaded"`

	// BytesTotal is the file size
	BytesTotal int64 `json:"bytes_total"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the last chunk was acknowledged
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete returns true if every byte has been acknowledged.
func (s UploadSession) Complete() bool {
	return s.BytesTotal > 0 && s.BytesUploaded >= s.BytesTotal
}

// Acknowledge advances the acknowledged offset.
// The offset never decreases and never exceeds BytesTotal.
func (s *UploadSession) Acknowledge(offset int64) {
	if offset > s.BytesTotal {
		offset = s.BytesTotal
	}
	if offset < s.BytesUploaded {
		return
	}
	s.BytesUploaded = offset
	s.UpdatedAt = time.Now()
}

// Progress returns the progress notification for the current offset.
func (s UploadSession) Progress() UploadProgress {
	return NewUploadProgress(s.BytesUploaded, s.BytesTotal)
}

// UploadProgress is published after each acknowledged chunk.
type UploadProgress struct {
	ObjectName    string
	BytesUploaded int64
	BytesTotal    int64
	// Percentage is rounded to two decimals
	Percentage float64
}

// NewUploadProgress builds a progress event.
func NewUploadProgress(uploaded, total int64) UploadProgress {
	var pct float64
	if total > 0 {
		pct = math.Round(float64(uploaded)/float64(total)*10000) / 100
	}
	return UploadProgress{
		BytesUploaded: uploaded,
		BytesTotal:    total,
		Percentage:    pct,
	}
}

// UploadSuccess is published when an upload completes.
type UploadSuccess struct {
	Message    string
	ObjectName string
	URL        string
}

// UploadFailure is published when an upload fails terminally.
type UploadFailure struct {
	ObjectName string
	Err        error
}
