package ai

import (
	"context"
	"errors"

	"campus-support/backend/internal/models"
)

var (
	// ErrNotConfigured means no oracle endpoint or credentials are set
	ErrNotConfigured = errors.New("text generation is not configured")
	// ErrUnavailable wraps every non-timeout oracle failure
	ErrUnavailable = errors.New("text generation unavailable")
)

// Turn is one prior message of the conversation
type Turn struct {
	Role    models.Role
	Content string
}

// FAQContext is a knowledge-base entry offered to the oracle as grounding
type FAQContext struct {
	Category string
	Question string
	Answer   string
}

// Caller identifies the signed-in user asking the question
type Caller struct {
	ID    string
	Email string
	Role  string
}

// GenerateRequest is a single assistant turn. Caller is nil for guests.
type GenerateRequest struct {
	Message string
	History []Turn
	FAQs    []FAQContext
	Context map[string]any
	Caller  *Caller
}

// Generation is the oracle's structured answer
type Generation struct {
	Reply              string
	Intent             string
	Confidence         float64
	SuggestedActions   []models.SuggestedAction
	RequiresEscalation bool
}

// Oracle produces assistant replies
type Oracle interface {
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
	Configured() bool
}
