package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

const (
	// DefaultGenerativeModel supports image edits with transparent output.
	DefaultGenerativeModel = "gpt-image-1"

	defaultInstruction = "Remove the background completely and return only the main subject on a transparent background."
)

// GenerativeConfig holds the knobs for the generative adapter.
type GenerativeConfig struct {
	BaseURL string // empty uses the OpenAI API base URL
	Model   string
	Size    string
	Timeout time.Duration
}

// Generative replaces (or removes) the background with an image-edit model.
// The request carries the image inline plus a text instruction; the response
// is a list of candidate images, and the first one with inline bytes wins.
//
// The multipart form is built here rather than by the SDK client, which never
// sends the model field and always sends response_format; gpt-image models
// need the former and reject the latter. The SDK still supplies the wire types.
type Generative struct {
	credential Credential
	endpoint   string
	model      string
	size       string
	client     *http.Client
	logger     *zap.Logger
}

var _ Processor = (*Generative)(nil)

// NewGenerative creates the generative adapter.
func NewGenerative(credential Credential, cfg GenerativeConfig, logger *zap.Logger) *Generative {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openai.DefaultConfig("").BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGenerativeModel
	}
	if cfg.Size == "" {
		cfg.Size = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Generative{
		credential: credential,
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/images/edits",
		model:      cfg.Model,
		size:       cfg.Size,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (g *Generative) Name() string { return "generative" }

func (g *Generative) Ready() error {
	if g.credential.IsZero() {
		return ErrUnconfigured
	}
	return nil
}

// Process sends the image with the instruction and returns the first inline image.
func (g *Generative) Process(ctx context.Context, original model.DataURI, opts Options) (model.DataURI, error) {
	if err := g.Ready(); err != nil {
		return "", err
	}

	mimeType, data, err := original.Decode()
	if err != nil {
		return "", &Error{Kind: KindRemoteRejected, Detail: "the image data is malformed", Err: err}
	}

	body, contentType, err := g.buildForm(mimeType, data, opts.Instruction)
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("building request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, body)
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+g.credential.Reveal())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", NetworkFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("reading body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", g.translate(resp.StatusCode, raw)
	}

	var parsed openai.ImageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Kind: KindRemoteRejected, Detail: "image generation failed", Err: err}
	}

	for _, part := range parsed.Data {
		if part.B64JSON == "" {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(part.B64JSON)
		if err != nil {
			g.logger.Debug("skipping undecodable image part", zap.Error(err))
			continue
		}
		detected := mimetype.Detect(img)
		if !strings.HasPrefix(detected.String(), "image/") {
			continue
		}
		return model.EncodeDataURI(detected.String(), img), nil
	}

	return "", Rejected("no image returned")
}

// buildForm writes the edit request. A blank instruction means plain removal,
// so the background is asked to be transparent; PNG keeps the alpha channel.
func (g *Generative) buildForm(mimeType string, data []byte, instruction string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(imagePartHeader(mimeType))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"model", g.model},
		{"prompt", BuildInstruction(instruction)},
		{"n", "1"},
		{"size", g.size},
		{"output_format", openai.CreateImageOutputFormatPNG},
	}
	if strings.TrimSpace(instruction) == "" {
		fields = append(fields, [2]string{"background", "transparent"})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func imagePartHeader(mimeType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="image`+model.ExtensionFor(mimeType)+`"`)
	h.Set("Content-Type", mimeType)
	return h
}

// BuildInstruction turns the user's background description into the prompt.
func BuildInstruction(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return defaultInstruction
	}
	return "Keep the main subject exactly as it is and replace background with: " + description
}

// translate maps an error response onto the normalized kinds.
func (g *Generative) translate(status int, raw []byte) error {
	cause := fmt.Errorf("image edit returned HTTP %d", status)

	var parsed openai.ErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
		parsed.Error.HTTPStatusCode = status
		parsed.Error.HTTPStatus = http.StatusText(status)
		cause = parsed.Error
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindUnauthorized, Err: cause}
	case status == http.StatusPaymentRequired:
		return &Error{Kind: KindQuotaExceeded, Err: cause}
	case parsed.Error != nil && isQuotaCode(parsed.Error.Code):
		return &Error{Kind: KindQuotaExceeded, Err: cause}
	}

	detail := "image generation failed"
	if parsed.Error != nil {
		if msg := strings.TrimSpace(parsed.Error.Message); msg != "" {
			detail = msg
		}
	}
	g.logger.Debug("image edit rejected", zap.Int("status", status), zap.String("detail", detail))
	return &Error{Kind: KindRemoteRejected, Detail: detail, Err: cause}
}

// isQuotaCode reports whether an OpenAI error code means the account is out of credits.
// Code is typed `any` in the SDK because the API sends both strings and numbers.
func isQuotaCode(code any) bool {
	s, ok := code.(string)
	return ok && (s == "insufficient_quota" || s == "billing_hard_limit_reached")
}
