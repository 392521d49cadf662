// Package remote wraps the external image APIs behind one small capability.
// Two interchangeable adapters exist: plain background removal (remove.bg) and
// generative background replacement (OpenAI image edits). Which one runs is a
// deployment decision made in New, never a per-call choice.
package remote

import (
	"context"
	"strings"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// Options tunes a single Process call.
type Options struct {
	// Instruction is free text describing the new background.
	// Only the generative adapter uses it.
	Instruction string
}

//go:generate mockgen -source=processor.go -destination=mocks/mock_processor.go -package=mocks

// Processor is the interface both adapters implement.
// Keep it small: one verb, plus the bits the orchestrator needs for logging
// and its fast-fail preflight.
type Processor interface {
	// Process sends the original image out and returns the processed image in
	// the same data URI form. Failures are always *Error.
	Process(ctx context.Context, original model.DataURI, opts Options) (model.DataURI, error)

	// Ready fails with ErrUnconfigured when no credential is set. It does no I/O.
	Ready() error

	// Name identifies the adapter in logs and the call ledger.
	Name() string
}

// Credential is the operator's API key. It prints as a placeholder so it can't
// end up in logs by accident; Reveal is only called when writing the header.
type Credential struct {
	value string
}

// NewCredential trims incidental whitespace (trailing newlines from secret
// stores are common) and wraps the key.
func NewCredential(raw string) Credential {
	return Credential{value: strings.TrimSpace(raw)}
}

func (c Credential) IsZero() bool     { return c.value == "" }
func (c Credential) Reveal() string   { return c.value }
func (c Credential) String() string   { return "[redacted]" }
func (c Credential) GoString() string { return "remote.Credential{[redacted]}" }
