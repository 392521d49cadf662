package export

import (
	"errors"
	"testing"
	"time"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

func fixedExporter(prefix string) *Exporter {
	e := New(prefix)
	e.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return e
}

func TestExport_Success(t *testing.T) {
	e := fixedExporter("")
	payload := model.ImagePayload{
		Original:  model.EncodeDataURI("image/jpeg", []byte("orig")),
		Processed: model.EncodeDataURI("image/png", []byte("cutout")),
		MIMEType:  "image/jpeg",
	}

	art, err := e.Export(payload, model.Idle())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if art.Filename != "no-background-20240309-140507.png" {
		t.Errorf("unexpected filename %s", art.Filename)
	}
	if art.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", art.ContentType)
	}
	if string(art.Data) != "cutout" {
		t.Errorf("expected processed bytes, got %q", art.Data)
	}
}

func TestExport_Disallowed(t *testing.T) {
	processed := model.ImagePayload{
		Original:  model.EncodeDataURI("image/png", []byte("a")),
		Processed: model.EncodeDataURI("image/png", []byte("b")),
	}

	tests := []struct {
		name    string
		payload model.ImagePayload
		status  model.Status
	}{
		{"empty session", model.ImagePayload{}, model.Idle()},
		{"original only", model.ImagePayload{Original: processed.Original}, model.Idle()},
		{"failed without result", model.ImagePayload{Original: processed.Original}, model.Failed("boom")},
		{"busy", processed, model.Busy("working")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := fixedExporter("x").Export(tt.payload, tt.status)
			if !errors.Is(err, ErrNothingToExport) {
				t.Fatalf("expected ErrNothingToExport, got %v", err)
			}
			if art != nil {
				t.Error("expected no artifact")
			}
		})
	}
}

func TestExport_ExtensionFollowsMIME(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"image/webp", ".webp"},
		{"image/gif", ".gif"},
		{"image/avif", ".avif"},
		{"image/x-unknown", ".png"},
		{"application/pdf", ".png"},
	}

	e := fixedExporter("")
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			payload := model.ImagePayload{Processed: model.EncodeDataURI(tt.mimeType, []byte("b"))}
			art, err := e.Export(payload, model.Idle())
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if want := "no-background-20240309-140507" + tt.want; art.Filename != want {
				t.Errorf("expected %s, got %s", want, art.Filename)
			}
			if art.ContentType != tt.mimeType {
				t.Errorf("expected content type %s, got %s", tt.mimeType, art.ContentType)
			}
		})
	}
}

func TestExport_CustomPrefix(t *testing.T) {
	payload := model.ImagePayload{Processed: model.EncodeDataURI("image/png", []byte("b"))}
	art, err := fixedExporter("  cutout ").Export(payload, model.Idle())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if art.Filename != "cutout-20240309-140507.png" {
		t.Errorf("unexpected filename %s", art.Filename)
	}
}
