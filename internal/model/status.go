package model

// StatusKind is the tag of the processing status variant.
// Go doesn't have sum types, so the tag is a typed string and the payload
// (progress text or error message) lives next to it.
type StatusKind string

const (
	StatusIdle   StatusKind = "idle"
	StatusBusy   StatusKind = "busy"
	StatusFailed StatusKind = "failed"
)

// Status is the processing status of a session. Exactly one kind holds at a time.
type Status struct {
	Kind    StatusKind `json:"state"`
	Message string     `json:"message,omitempty"`
}

// Idle returns the resting status.
func Idle() Status { return Status{Kind: StatusIdle} }

// Busy returns the in-flight status with a progress message.
func Busy(progress string) Status { return Status{Kind: StatusBusy, Message: progress} }

// Failed returns the error status with a user-facing message.
func Failed(message string) Status { return Status{Kind: StatusFailed, Message: message} }

func (s Status) IsBusy() bool   { return s.Kind == StatusBusy }
func (s Status) IsFailed() bool { return s.Kind == StatusFailed }
