package gateway

import (
	"context"
	"time"

	"github.com/user/celestialecho/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one inbound mention to process: a single target lookup against
// HORIZONS on behalf of one conversation. Each run drives its own session
// automaton instance; runs share no transport or buffer.
type Run struct {
	ID         types.RunID
	SessionKey types.SessionKey
	MessageID  int64
	Target     string
	ReceivedAt time.Time
	Status     RunStatus
	CreatedAt  time.Time
	Error      error
	Ctx        context.Context
	OnComplete func(response string)
}

// NewRun creates a Run in the Queued state.
func NewRun(key types.SessionKey, messageID int64, target string, receivedAt time.Time) *Run {
	return &Run{
		ID:         types.NewRunID(),
		SessionKey: key,
		MessageID:  messageID,
		Target:     target,
		ReceivedAt: receivedAt,
		Status:     RunStatusQueued,
		CreatedAt:  time.Now(),
	}
}

func (r *Run) complete(response string) {
	if r.OnComplete != nil {
		r.OnComplete(response)
	}
}
