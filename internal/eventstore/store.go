// Package eventstore persists run events so repeated runs stay auditable.
package eventstore

import (
	"context"
	"time"
)

// Event is one recorded pipeline occurrence.
type Event struct {
	ID        int64             `json:"id"`
	RunID     string            `json:"run_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   []byte            `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Canonical event types appended by the pipeline.
const (
	TypeRunStarted        = "run.started"
	TypeRunCompleted      = "run.completed"
	TypeStageCompleted    = "stage.completed"
	TypePageSynthesized   = "page.synthesized"
	TypePageDefect        = "page.defect"
	TypeGuardSkipped      = "guard.skipped"
	TypeGenerationRetried = "generation.retried"
)

// Store is the append/query interface over persisted run events.
type Store interface {
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error
	GetByRunID(ctx context.Context, runID string) ([]Event, error)
	Close() error
}

// Noop discards all events; used when no events database is configured.
type Noop struct{}

func (Noop) Append(context.Context, string, string, []byte, map[string]string) error { return nil }
func (Noop) GetByRunID(context.Context, string) ([]Event, error)                     { return nil, nil }
func (Noop) Close() error                                                           { return nil }
