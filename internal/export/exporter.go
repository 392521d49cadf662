// Package export turns a processed image into a downloadable artifact.
package export

import (
	"errors"
	"strings"
	"time"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// ErrNothingToExport is returned when there is no finished result to save.
var ErrNothingToExport = errors.New("no processed image to export")

// DefaultPrefix is used when no filename prefix is configured.
const DefaultPrefix = "no-background"

// Artifact is a file ready to be sent to a browser or written to disk.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter names and decodes processed images.
type Exporter struct {
	prefix string
	now    func() time.Time
}

// New creates an exporter whose filenames start with prefix.
func New(prefix string) *Exporter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Exporter{prefix: prefix, now: time.Now}
}

// Export returns the processed image as an artifact named
// <prefix>-<YYYYMMDD-HHMMSS><ext>. Nothing is exported while a job is running
// or before one has succeeded.
func (e *Exporter) Export(payload model.ImagePayload, status model.Status) (*Artifact, error) {
	if status.IsBusy() || !payload.HasProcessed() {
		return nil, ErrNothingToExport
	}

	mimeType, data, err := payload.Processed.Decode()
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Filename:    e.prefix + "-" + e.now().Format("20060102-150405") + model.ExtensionFor(mimeType),
		ContentType: mimeType,
		Data:        data,
	}, nil
}
