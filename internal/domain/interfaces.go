package domain

import "context"

// ChunkSource returns the evidence pool for a unit.
type ChunkSource interface {
	Chunks(ctx context.Context, unitID string) ([]Chunk, error)
}

// GenerateOptions tunes one generation call. A nil Temperature leaves the
// backend default in place.
type GenerateOptions struct {
	Model           string
	Temperature     *float64
	MaxOutputTokens int
	ReasoningEffort string
}

// Generator produces free text from a prompt. It may fail or be unavailable.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Store persists attempts, chat history and revision missions, keyed by unit.
type Store interface {
	SaveAttempt(ctx context.Context, unitID, draft string, report FeedbackReport) (Attempt, error)
	Attempts(ctx context.Context, unitID string, limit int) ([]Attempt, error)
	SaveChatTurn(ctx context.Context, turn ChatTurn) error
	ChatTurns(ctx context.Context, unitID string, limit int) ([]ChatTurn, error)
	SaveMission(ctx context.Context, mission RevisionMission) (RevisionMission, error)
	ActiveMission(ctx context.Context, unitID string) (*RevisionMission, error)
	CompleteMission(ctx context.Context, id int64) error
	SupersedeActiveMissions(ctx context.Context, unitID string) (int, error)
}

// ProgressStore holds learner progress and per-unit drafts.
type ProgressStore interface {
	LoadProgress(ctx context.Context, unitIDs []string) (Progress, error)
	SaveProgress(ctx context.Context, p Progress) error
	SaveDraft(ctx context.Context, unitID, draft string) error
	Draft(ctx context.Context, unitID string) (string, error)
}

// Temperature returns a pointer to t for use in GenerateOptions.
func Temperature(t float64) *float64 { return &t }
