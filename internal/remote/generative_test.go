package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

func newTestGenerative(t *testing.T, key string, handler http.HandlerFunc) (*Generative, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	g := NewGenerative(NewCredential(key), GenerativeConfig{
		BaseURL: srv.URL + "/v1",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	return g, &hits
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGenerative_Success(t *testing.T) {
	original := createTestPNG(10, 10, color.RGBA{R: 255, A: 255})
	generated := createTestPNG(10, 10, color.NRGBA{G: 200, A: 128})

	g, _ := newTestGenerative(t, "key", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/images/edits") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}

		wantFields := map[string]string{
			"model":         DefaultGenerativeModel,
			"size":          "auto",
			"n":             "1",
			"output_format": "png",
		}
		for field, want := range wantFields {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s = %q, want %q", field, got, want)
			}
		}
		if _, sent := r.MultipartForm.Value["response_format"]; sent {
			t.Error("response_format must not be sent")
		}
		if _, sent := r.MultipartForm.Value["background"]; sent {
			t.Error("background must be left to the model when an instruction is given")
		}
		if prompt := r.FormValue("prompt"); !strings.Contains(prompt, "replace background with: beach at sunset") {
			t.Errorf("instruction missing from prompt: %q", prompt)
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("expected inline image part: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "image.png" || header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("unexpected image part %q %q", header.Filename, header.Header.Get("Content-Type"))
		}
		if sent, _ := io.ReadAll(file); !bytes.Equal(sent, original) {
			t.Error("image part does not carry the original bytes")
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"created": 1,
			"data": []map[string]string{
				{"url": "https://example.com/ignored.png"},
				{"b64_json": base64.StdEncoding.EncodeToString(generated)},
			},
		})
	})

	result, err := g.Process(context.Background(), model.EncodeDataURI("image/png", original), Options{Instruction: " beach at sunset "})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.MIMEType() != "image/png" {
		t.Errorf("expected image/png, got %s", result.MIMEType())
	}
	_, data, _ := result.Decode()
	if !bytes.Equal(data, generated) {
		t.Error("expected the first inline image part")
	}
}

func TestGenerative_RemovalAsksForTransparency(t *testing.T) {
	g, _ := newTestGenerative(t, "key", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}
		if got := r.FormValue("background"); got != "transparent" {
			t.Errorf("background = %q, want transparent", got)
		}
		if got := r.FormValue("prompt"); got != defaultInstruction {
			t.Errorf("unexpected prompt %q", got)
		}
		if _, header, err := r.FormFile("image"); err != nil || header.Filename != "image.jpg" {
			t.Errorf("expected a .jpg image part, got %v %v", header, err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(createTestPNG(2, 2, color.Transparent))}},
		})
	})

	jpegish := model.EncodeDataURI("image/jpeg", []byte("\xff\xd8\xff"))
	if _, err := g.Process(context.Background(), jpegish, Options{Instruction: "  "}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
}

func TestGenerative_ConfiguredModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(10 << 20)
		gotModel = r.FormValue("model")
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(createTestPNG(2, 2, color.White))}},
		})
	}))
	defer srv.Close()

	g := NewGenerative(NewCredential("key"), GenerativeConfig{BaseURL: srv.URL + "/", Model: "gpt-image-1-mini"}, zap.NewNop())
	if _, err := g.Process(context.Background(), model.EncodeDataURI("image/png", createTestPNG(2, 2, color.White)), Options{}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if gotModel != "gpt-image-1-mini" {
		t.Errorf("model = %q, want gpt-image-1-mini", gotModel)
	}
}

func TestGenerative_NoImagePart(t *testing.T) {
	g, _ := newTestGenerative(t, "key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"created": 1,
			"data":    []map[string]string{{"revised_prompt": "a beach"}},
		})
	})

	_, err := g.Process(context.Background(), model.EncodeDataURI("image/png", createTestPNG(2, 2, color.White)), Options{})
	if !errors.Is(err, ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
	if DetailOf(err) != "no image returned" {
		t.Errorf("expected 'no image returned', got %q", DetailOf(err))
	}
}

func TestGenerative_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		code       string
		message    string
		wantKind   Kind
		wantDetail string
	}{
		{"bad key", http.StatusUnauthorized, "invalid_api_key", "Incorrect API key provided", KindUnauthorized, ""},
		{"forbidden", http.StatusForbidden, "", "Project does not have access", KindUnauthorized, ""},
		{"no credits", http.StatusTooManyRequests, "insufficient_quota", "You exceeded your current quota", KindQuotaExceeded, ""},
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit reached", KindRemoteRejected, "Rate limit reached"},
		{"safety", http.StatusBadRequest, "moderation_blocked", "Your request was rejected by the safety system.", KindRemoteRejected, "Your request was rejected by the safety system."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGenerative(t, "key", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{
						"message": tt.message,
						"type":    "invalid_request_error",
						"code":    tt.code,
					},
				})
			})

			_, err := g.Process(context.Background(), model.EncodeDataURI("image/png", createTestPNG(2, 2, color.White)), Options{})
			if KindOf(err) != tt.wantKind {
				t.Fatalf("expected kind %s, got %v", tt.wantKind, err)
			}
			if got := DetailOf(err); got != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, got)
			}
		})
	}
}

func TestGenerative_UnconfiguredDoesNoIO(t *testing.T) {
	g, hits := newTestGenerative(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := g.Process(context.Background(), model.EncodeDataURI("image/png", []byte("x")), Options{})
	if !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Error("expected no network call")
	}
}

func TestGenerative_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL + "/v1"
	srv.Close()

	g := NewGenerative(NewCredential("key"), GenerativeConfig{BaseURL: baseURL}, zap.NewNop())

	_, err := g.Process(context.Background(), model.EncodeDataURI("image/png", createTestPNG(2, 2, color.White)), Options{})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestBuildInstruction(t *testing.T) {
	if got := BuildInstruction("   "); got != defaultInstruction {
		t.Errorf("expected default instruction, got %q", got)
	}
	if got := BuildInstruction("modern office"); !strings.HasSuffix(got, "replace background with: modern office") {
		t.Errorf("unexpected instruction %q", got)
	}
}
