package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-intentflow/pkg/models"
)

// Chat asks a master actor to answer one request. Ctx is the caller's context; cancelling
// it abandons the request.
type Chat struct {
	Ctx     context.Context
	Request models.Request
}

// EvaluationRequest is published by the master agent after a response has been returned.
type EvaluationRequest struct {
	RequestID uuid.UUID
	UserID    string
	Question  string
	Answer    string
	Approach  string
	Kind      models.Kind
	Tier      int
	ToolsUsed []string
	Success   bool
	Latency   time.Duration
}

type GetEvaluation struct {
	RequestID uuid.UUID
}

type EvaluationResult struct {
	RequestID  uuid.UUID
	Record     models.EvaluationRecord
	Suggestion *models.Suggestion
}

// EvaluationPending answers GetEvaluation while the request is queued or unknown.
type EvaluationPending struct {
	RequestID uuid.UUID
}
