package ingest

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// createTestPNG generates a small solid-color PNG in memory.
func createTestPNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// countingReader records whether anything tried to read from it.
type countingReader struct {
	reads int
}

func (r *countingReader) Read(p []byte) (int, error) {
	r.reads++
	return 0, errors.New("should not be read")
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestIngest_ValidPNG(t *testing.T) {
	data := createTestPNG(10, 10, color.RGBA{R: 255, A: 255})

	payload, err := New(0).IngestBytes("image/png", data)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if payload.MIMEType != "image/png" {
		t.Errorf("expected mime image/png, got %s", payload.MIMEType)
	}
	if payload.HasProcessed() {
		t.Error("processed must be empty after ingest")
	}

	mimeType, decoded, err := payload.Original.Decode()
	if err != nil {
		t.Fatalf("decoding original: %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(decoded, data) {
		t.Error("original does not round-trip the uploaded bytes")
	}
}

func TestIngest_DeclaredTypeWithParams(t *testing.T) {
	data := createTestPNG(2, 2, color.White)

	payload, err := New(0).IngestBytes("image/png; charset=binary", data)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if payload.MIMEType != "image/png" {
		t.Errorf("expected params stripped, got %q", payload.MIMEType)
	}
}

func TestIngest_Rejections(t *testing.T) {
	pngData := createTestPNG(4, 4, color.Black)

	tests := []struct {
		name       string
		declared   string
		data       []byte
		maxBytes   int64
		wantReason string
	}{
		{"text file", "text/plain", []byte("hello"), 0, ReasonNotImage},
		{"empty type", "", pngData, 0, ReasonNotImage},
		{"bare image prefix", "image/", pngData, 0, ReasonNotImage},
		{"malformed type", "image/png;;=", pngData, 0, ReasonNotImage},
		{"zero bytes", "image/png", []byte{}, 0, ReasonUnreadable},
		{"not really an image", "image/png", []byte("just some text pretending"), 0, ReasonUnreadable},
		{"too large", "image/png", pngData, int64(len(pngData) - 1), ReasonTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.maxBytes).IngestBytes(tt.declared, tt.data)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if got := Reason(err); got != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, got)
			}
		})
	}
}

func TestIngest_ExactlyMaxBytesIsAccepted(t *testing.T) {
	data := createTestPNG(4, 4, color.Black)

	if _, err := New(int64(len(data))).IngestBytes("image/png", data); err != nil {
		t.Fatalf("expected file of exactly max size to be accepted, got %v", err)
	}
}

func TestIngest_ValidatesTypeBeforeReading(t *testing.T) {
	r := &countingReader{}

	_, err := New(0).Ingest("application/pdf", r)
	if Reason(err) != ReasonNotImage {
		t.Fatalf("expected not-an-image, got %v", err)
	}
	if r.reads != 0 {
		t.Errorf("reader was read %d times before type validation", r.reads)
	}
}

func TestIngest_ReadFailureIsUnreadable(t *testing.T) {
	_, err := New(0).Ingest("image/jpeg", failingReader{})
	if Reason(err) != ReasonUnreadable {
		t.Fatalf("expected unreadable, got %v", err)
	}
	if strings.Contains(err.Error(), "disk on fire") {
		t.Error("internal read error must not leak into the user-facing reason")
	}
}

func TestIngest_NilReader(t *testing.T) {
	_, err := New(0).Ingest("image/png", nil)
	if Reason(err) != ReasonUnreadable {
		t.Fatalf("expected unreadable, got %v", err)
	}
}
