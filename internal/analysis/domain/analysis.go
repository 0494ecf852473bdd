package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Status is the lifecycle tag of an analysis record. A record moves
// processing -> completed or processing -> error and never leaves a terminal
// status; a new submission creates a new record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status tag.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusCompleted || s == StatusError
}

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Record is one analysis produced by the job engine for a domain. Payload is
// opaque to the gateway and passed through to callers untouched.
type Record struct {
	ID        string
	Domain    string
	Status    Status
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the record for persistence.
func (r *Record) Validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	if r.Domain == "" {
		return errors.New("domain is required")
	}
	if !r.Status.Valid() {
		return errors.New("status must be processing, completed or error")
	}
	return nil
}
