// Package ingest turns a user-selected file into an ImagePayload.
// It is pure: it validates and encodes, and leaves storing the payload to the caller.
package ingest

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// DefaultMaxBytes caps uploads at the size remove.bg accepts for base64 uploads.
const DefaultMaxBytes = 12 << 20

// Reasons carried by InvalidInputError.
const (
	ReasonNotImage   = "not an image"
	ReasonUnreadable = "unreadable"
	ReasonTooLarge   = "too large"
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned when the uploaded file can't be used.
// No remote request is ever attempted for such a file.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Ingestor validates uploads and encodes them into data URIs.
type Ingestor struct {
	maxBytes int64
}

// New creates an Ingestor. maxBytes <= 0 falls back to DefaultMaxBytes.
func New(maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingestor{maxBytes: maxBytes}
}

// Ingest checks the declared media type before reading anything, then reads
// the file (bounded), confirms the bytes look like an image and returns a fresh
// payload with an empty Processed field.
func (i *Ingestor) Ingest(declaredType string, r io.Reader) (model.ImagePayload, error) {
	mimeType, ok := imageMediaType(declaredType)
	if !ok {
		return model.ImagePayload{}, &InvalidInputError{Reason: ReasonNotImage}
	}

	if r == nil {
		return model.ImagePayload{}, &InvalidInputError{Reason: ReasonUnreadable}
	}

	// Read one byte past the limit so we can tell "exactly max" from "too large".
	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil || len(data) == 0 {
		return model.ImagePayload{}, &InvalidInputError{Reason: ReasonUnreadable}
	}
	if int64(len(data)) > i.maxBytes {
		return model.ImagePayload{}, &InvalidInputError{Reason: ReasonTooLarge}
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return model.ImagePayload{}, &InvalidInputError{Reason: ReasonUnreadable}
	}

	return model.ImagePayload{
		Original: model.EncodeDataURI(mimeType, data),
		MIMEType: mimeType,
	}, nil
}

// IngestBytes is a convenience for callers that already hold the file in memory.
func (i *Ingestor) IngestBytes(declaredType string, data []byte) (model.ImagePayload, error) {
	return i.Ingest(declaredType, bytes.NewReader(data))
}

// imageMediaType normalizes a declared Content-Type and reports whether it is image/*.
func imageMediaType(declared string) (string, bool) {
	if strings.TrimSpace(declared) == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(mediaType, "image/") || mediaType == "image/" {
		return "", false
	}
	return mediaType, true
}

// Reason extracts the InvalidInput reason from an error chain, or "" if none.
func Reason(err error) string {
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return invalid.Reason
	}
	return ""
}
