package remote

import (
	"errors"
	"fmt"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// Kind is the normalized failure category of a remote call.
type Kind int

const (
	KindUnconfigured Kind = iota + 1
	KindUnauthorized
	KindQuotaExceeded
	KindRemoteRejected
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnconfigured:
		return "unconfigured"
	case KindUnauthorized:
		return "unauthorized"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRemoteRejected:
		return "remote_rejected"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// Outcome maps a kind to the ledger outcome.
func (k Kind) Outcome() model.CallOutcome {
	switch k {
	case KindUnconfigured:
		return model.OutcomeUnconfigured
	case KindUnauthorized:
		return model.OutcomeUnauthorized
	case KindQuotaExceeded:
		return model.OutcomeQuotaExceeded
	case KindRemoteRejected:
		return model.OutcomeRemoteRejected
	default:
		return model.OutcomeNetworkError
	}
}

// Error is the only error type adapters return.
// Detail is human-readable and only meaningful for KindRemoteRejected;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind, so callers can write
// errors.Is(err, remote.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnconfigured   = &Error{Kind: KindUnconfigured}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrQuotaExceeded  = &Error{Kind: KindQuotaExceeded}
	ErrRemoteRejected = &Error{Kind: KindRemoteRejected}
	ErrNetwork        = &Error{Kind: KindNetwork}
)

// Rejected builds a RemoteRejected error carrying a user-presentable detail.
func Rejected(detail string) *Error {
	return &Error{Kind: KindRemoteRejected, Detail: detail}
}

// NetworkFailure wraps a transport error.
func NetworkFailure(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// KindOf classifies any error. Errors that didn't come from an adapter are
// treated as network failures: they are transient from the user's point of view.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}

// DetailOf returns the RemoteRejected detail, or "" for other kinds.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRemoteRejected {
		return e.Detail
	}
	return ""
}
