package messages

import (
	"context"
	"github.com/google/uuid"
	"go-askbot/pkg/models"
)

// Dispatch asks a capability actor to answer one sub-question.
type Dispatch struct {
	RequestID uuid.UUID
	Domain    models.Domain
	Question  string
	Digest    string
	// Ctx carries the request deadline across the actor boundary.
	Ctx context.Context
}

type DispatchResult struct {
	Result models.CapabilityResult
}
