package models

import (
	"fmt"
	"time"
)

// JobKind identifies which engine family ran a fetch job.
type JobKind string

const (
	KindMedia JobKind = "media"
	KindSwarm JobKind = "swarm"
)

// JobStatus is the terminal outcome of a fetch job as recorded in history.
//
// Cancellation is a first-class outcome, never folded into StatusError.
type JobStatus string

const (
	StatusFinished  JobStatus = "finished"
	StatusError     JobStatus = "error"
	StatusCancelled JobStatus = "cancelled"
)

// HistoryRecord is the durable record of one fetch job.
//
// Records use create-or-update semantics keyed by ID: writing the same id
// twice updates the existing row rather than duplicating it.
type HistoryRecord struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Filename   string     `json:"filename,omitempty"`
	Kind       JobKind    `json:"kind"`
	Status     JobStatus  `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Meta       string     `json:"meta,omitempty"`
}

// NewHistoryRecord creates a record for the given job with CreatedAt set to now.
func NewHistoryRecord(id, source string, kind JobKind, status JobStatus) *HistoryRecord {
	return &HistoryRecord{
		ID:        id,
		Source:    source,
		Kind:      kind,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks that the record carries the fields the history table requires.
func (h *HistoryRecord) Validate() error {
	if h.ID == "" {
		return fmt.Errorf("history record missing id")
	}
	if h.Source == "" {
		return fmt.Errorf("history record missing source")
	}
	switch h.Kind {
	case KindMedia, KindSwarm:
	default:
		return fmt.Errorf("invalid job kind: %q", h.Kind)
	}
	switch h.Status {
	case StatusFinished, StatusError, StatusCancelled:
	default:
		return fmt.Errorf("invalid job status: %q", h.Status)
	}
	return nil
}
