package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

const (
	// DefaultRemoveBGEndpoint is remove.bg's removal endpoint.
	DefaultRemoveBGEndpoint = "https://api.remove.bg/v1.0/removebg"

	userAgent = "removebg-pro/1.0"

	// maxResponseBytes bounds what we are willing to buffer from the provider.
	maxResponseBytes = 50 << 20

	genericRemovalFailure = "background removal failed"
)

// RemoveBGConfig holds the wire-level knobs for remove.bg.
type RemoveBGConfig struct {
	Endpoint string        // defaults to DefaultRemoveBGEndpoint
	Size     string        // remove.bg "size" directive, defaults to "auto"
	Timeout  time.Duration // per-request HTTP timeout
}

// RemoveBG is the background-removal adapter. The credential travels in the
// X-Api-Key header only, never the query string, so it stays out of proxy logs.
type RemoveBG struct {
	credential Credential
	endpoint   string
	size       string
	client     *http.Client
	logger     *zap.Logger
}

var _ Processor = (*RemoveBG)(nil)

// NewRemoveBG creates the adapter. The credential is injected rather than read
// from the environment here, which keeps the adapter testable.
func NewRemoveBG(credential Credential, cfg RemoveBGConfig, logger *zap.Logger) *RemoveBG {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRemoveBGEndpoint
	}
	if cfg.Size == "" {
		cfg.Size = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &RemoveBG{
		credential: credential,
		endpoint:   cfg.Endpoint,
		size:       cfg.Size,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (r *RemoveBG) Name() string { return "removebg" }

func (r *RemoveBG) Ready() error {
	if r.credential.IsZero() {
		return ErrUnconfigured
	}
	return nil
}

// removeBGErrorResponse is remove.bg's JSON error body.
type removeBGErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Code   string `json:"code"`
	} `json:"errors"`
}

// Process uploads the image and returns the cut-out, typically a PNG with alpha.
// opts.Instruction is ignored: remove.bg has no prompt.
func (r *RemoveBG) Process(ctx context.Context, original model.DataURI, _ Options) (model.DataURI, error) {
	if err := r.Ready(); err != nil {
		return "", err
	}

	// remove.bg takes the base64 payload without the data URI header.
	payload, err := original.Payload()
	if err != nil {
		return "", &Error{Kind: KindRemoteRejected, Detail: "the image data is malformed", Err: err}
	}

	body, contentType, err := r.buildForm(payload)
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("building request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "image/*, application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Api-Key", r.credential.Reveal())

	resp, err := r.client.Do(req)
	if err != nil {
		return "", NetworkFailure(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Kind: KindUnauthorized, Err: fmt.Errorf("remove.bg returned HTTP %d", resp.StatusCode)}

	case resp.StatusCode == http.StatusPaymentRequired:
		// remove.bg answers 402 when the account has no credits left.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Kind: KindQuotaExceeded, Err: fmt.Errorf("remove.bg returned HTTP %d", resp.StatusCode)}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		detail := parseRemoveBGError(resp.Body)
		r.logger.Debug("remove.bg rejected image",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return "", &Error{
			Kind:   KindRemoteRejected,
			Detail: detail,
			Err:    fmt.Errorf("remove.bg returned HTTP %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", NetworkFailure(fmt.Errorf("reading body: %w", err))
	}
	if len(data) == 0 {
		return "", Rejected("no image returned")
	}

	return model.EncodeDataURI(imageMIME(resp.Header.Get("Content-Type")), data), nil
}

// buildForm writes the multipart body: image_base64 plus the size directive.
func (r *RemoveBG) buildForm(payload string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("image_base64", payload); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("size", r.size); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// parseRemoveBGError extracts the first human-readable title from the error
// body, falling back to a generic detail when the body isn't the expected JSON.
func parseRemoveBGError(body io.Reader) string {
	var parsed removeBGErrorResponse
	if err := json.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&parsed); err != nil {
		return genericRemovalFailure
	}
	for _, e := range parsed.Errors {
		if title := strings.TrimSpace(e.Title); title != "" {
			return title
		}
		if detail := strings.TrimSpace(e.Detail); detail != "" {
			return detail
		}
	}
	return genericRemovalFailure
}

// imageMIME returns the response media type when it is an image, else image/png.
func imageMIME(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "image/png"
	}
	return mediaType
}
