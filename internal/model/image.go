// Package model defines the core data types for the background removal workflow.
// Struct tags (`json:"..."` and `db:"..."`) tell serialization libraries how to
// map fields, the same way across the HTTP API and the call ledger.
package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrMalformedDataURI is returned when a string is not a base64 data URI.
var ErrMalformedDataURI = errors.New("malformed data URI")

// DataURI is the transmissible form of an image used everywhere inside the
// service: "data:<mime>;base64,<payload>". Keeping original and processed images
// in the same form lets callers treat them uniformly.
type DataURI string

// EncodeDataURI wraps raw bytes into a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) DataURI {
	return DataURI("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// IsZero reports whether no image is held.
func (d DataURI) IsZero() bool {
	return d == ""
}

// MIMEType returns the media type from the header, or "" if the URI is malformed.
func (d DataURI) MIMEType() string {
	header, _, ok := d.split()
	if !ok {
		return ""
	}
	return header
}

// Decode strips the data URI header and returns the MIME type and raw bytes.
func (d DataURI) Decode() (string, []byte, error) {
	mimeType, payload, ok := d.split()
	if !ok {
		return "", nil, ErrMalformedDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return mimeType, data, nil
}

// Payload returns the base64 part after the comma, without decoding it.
// remove.bg accepts this string as-is in its image_base64 field.
func (d DataURI) Payload() (string, error) {
	_, payload, ok := d.split()
	if !ok {
		return "", ErrMalformedDataURI
	}
	return payload, nil
}

func (d DataURI) split() (mimeType string, payload string, ok bool) {
	rest, found := strings.CutPrefix(string(d), "data:")
	if !found {
		return "", "", false
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mimeType, found = strings.CutSuffix(header, ";base64")
	if !found {
		return "", "", false
	}
	return mimeType, payload, true
}

// ExtensionFor returns the file extension for an image media type.
// PNG is the fallback because it keeps the alpha channel of a cut-out.
func ExtensionFor(mimeType string) string {
	m := mimetype.Lookup(mimeType)
	if m == nil || !strings.HasPrefix(m.String(), "image/") || m.Extension() == "" {
		return ".png"
	}
	return m.Extension()
}

// ImagePayload is the image triple of a session.
// Processed is only set after a successful remote call on the current Original;
// replacing Original must clear it.
type ImagePayload struct {
	Original  DataURI `json:"original,omitempty"`
	Processed DataURI `json:"processed,omitempty"`
	MIMEType  string  `json:"mime_type"`
}

// HasOriginal reports whether an upload has been ingested.
func (p ImagePayload) HasOriginal() bool {
	return !p.Original.IsZero()
}

// HasProcessed reports whether a processed result is available.
func (p ImagePayload) HasProcessed() bool {
	return !p.Processed.IsZero()
}
