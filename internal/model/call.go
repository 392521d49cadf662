package model

import "time"

// CallOutcome classifies how a remote processing call ended.
type CallOutcome string

const (
	OutcomeSuccess        CallOutcome = "success"
	OutcomeUnconfigured   CallOutcome = "unconfigured"
	OutcomeUnauthorized   CallOutcome = "unauthorized"
	OutcomeQuotaExceeded  CallOutcome = "quota_exceeded"
	OutcomeRemoteRejected CallOutcome = "remote_rejected"
	OutcomeNetworkError   CallOutcome = "network_error"
)

// AllOutcomes is the ordered list of outcomes for reporting.
var AllOutcomes = []CallOutcome{
	OutcomeSuccess,
	OutcomeUnconfigured,
	OutcomeUnauthorized,
	OutcomeQuotaExceeded,
	OutcomeRemoteRejected,
	OutcomeNetworkError,
}

// ProcessingCall tracks each call to the remote image API for credit monitoring.
// It never carries image bytes or the credential.
type ProcessingCall struct {
	ID         int64       `db:"id" json:"id"`
	SessionID  string      `db:"session_id" json:"session_id"`
	Adapter    string      `db:"adapter" json:"adapter"`
	Outcome    CallOutcome `db:"outcome" json:"outcome"`
	Stale      bool        `db:"stale" json:"stale"`
	DurationMs int64       `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
