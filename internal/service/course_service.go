// Package service composes the catalog, chunk source, engines and store into
// the course operations used by the CLI and TUI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coursecoach/internal/catalog"
	"coursecoach/internal/coach"
	"coursecoach/internal/domain"
	"coursecoach/internal/exercise"
	"coursecoach/internal/feedback"
	"coursecoach/internal/lesson"
	"coursecoach/internal/revision"
	"coursecoach/internal/store"
)

var (
	// ErrUnknownUnit reports a unit id missing from the catalog.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrUnitLocked reports a unit the learner has not unlocked yet.
	ErrUnitLocked = errors.New("unit is locked")
)

// Repository is the persistence the service needs.
type Repository interface {
	domain.Store
	domain.ProgressStore
	LatestReport(ctx context.Context, unitID string) (domain.FeedbackReport, error)
}

// Engines bundles the four output pipelines.
type Engines struct {
	Coach    *coach.Engine
	Feedback *feedback.Engine
	Lesson   *lesson.Engine
	Revision *revision.Engine
}

// Caches holds the on-disk study material caches. Either may be nil to build
// material on demand.
type Caches struct {
	Lessons   *lesson.Cache
	Exercises *exercise.Cache
}

// CourseService runs course operations for a single learner.
type CourseService struct {
	catalog    *catalog.Catalog
	chunks     domain.ChunkSource
	engines    Engines
	caches     Caches
	repo       Repository
	thresholds domain.Thresholds
	log        *zap.Logger
	now        func() time.Time

	submitLocks store.KeyedMutex
	progressMu  sync.Mutex

	packsMu sync.Mutex
	packs   map[string]domain.LessonPack

	exercisesMu sync.Mutex
	exercises   map[string][]domain.Exercise
}

// NewCourseService wires a service.
func NewCourseService(cat *catalog.Catalog, chunks domain.ChunkSource, engines Engines, caches Caches, repo Repository, thresholds domain.Thresholds, log *zap.Logger) *CourseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseService{
		catalog:    cat,
		chunks:     chunks,
		engines:    engines,
		caches:     caches,
		repo:       repo,
		thresholds: thresholds,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Catalog returns the course catalog.
func (s *CourseService) Catalog() *catalog.Catalog { return s.catalog }

func (s *CourseService) unit(unitID string) (domain.CourseUnit, error) {
	u, ok := s.catalog.ByID(unitID)
	if !ok {
		return domain.CourseUnit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unitID)
	}
	return u, nil
}

func (s *CourseService) unitChunks(ctx context.Context, unitID string) ([]domain.Chunk, error) {
	chunks, err := s.chunks.Chunks(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("load chunks for unit %s: %w", unitID, err)
	}
	return chunks, nil
}

// chunksByUnit loads the evidence pool of every unit.
func (s *CourseService) chunksByUnit(ctx context.Context) (map[string][]domain.Chunk, error) {
	units := s.catalog.Units()
	byUnit := make(map[string][]domain.Chunk, len(units))
	for _, u := range units {
		chunks, err := s.unitChunks(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		byUnit[u.ID] = chunks
	}
	return byUnit, nil
}

// Ask answers a question from the unit's chunks and records the exchange.
func (s *CourseService) Ask(ctx context.Context, unitID, question string) (domain.CoachAnswer, error) {
	if _, err := s.unit(unitID); err != nil {
		return domain.CoachAnswer{}, err
	}
	chunks, err := s.unitChunks(ctx, unitID)
	if err != nil {
		return domain.CoachAnswer{}, err
	}
	answer := s.engines.Coach.Ask(ctx, unitID, question, chunks)
	turn := domain.ChatTurn{
		UnitID:    unitID,
		Question:  question,
		Answer:    answer.Answer,
		Citations: answer.Citations,
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveChatTurn(ctx, turn); err != nil {
		return answer, err
	}
	return answer, nil
}

// Submission is the outcome of submitting a draft.
type Submission struct {
	Attempt  domain.Attempt         `json:"attempt"`
	Report   domain.FeedbackReport  `json:"report"`
	Mission  domain.RevisionMission `json:"mission"`
	Progress domain.Progress        `json:"progress"`
	Unlocked string                 `json:"unlocked_unit,omitempty"`
}

// SubmitDraft evaluates a draft, stores the attempt, updates progress and
// replaces the unit's active revision mission with a new one.
func (s *CourseService) SubmitDraft(ctx context.Context, unitID, draft string) (Submission, error) {
	unit, err := s.unit(unitID)
	if err != nil {
		return Submission{}, err
	}
	unlock := s.submitLocks.Lock(unitID)
	defer unlock()

	if err := s.repo.SaveDraft(ctx, unitID, draft); err != nil {
		return Submission{}, err
	}
	chunks, err := s.unitChunks(ctx, unitID)
	if err != nil {
		return Submission{}, err
	}

	report := s.engines.Feedback.Evaluate(ctx, unit, draft, chunks)
	attempt, err := s.repo.SaveAttempt(ctx, unitID, draft, report)
	if err != nil {
		return Submission{}, err
	}

	progress, unlocked, err := s.recordProgress(ctx, unitID, report.OverallScore)
	if err != nil {
		return Submission{}, err
	}

	superseded, err := s.repo.SupersedeActiveMissions(ctx, unitID)
	if err != nil {
		return Submission{}, err
	}
	mission := s.engines.Revision.Build(ctx, unit, report, draft, chunks)
	mission.AttemptID = attempt.ID
	mission, err = s.repo.SaveMission(ctx, mission)
	if err != nil {
		return Submission{}, err
	}

	s.log.Info("draft evaluated",
		zap.String("unit_id", unitID),
		zap.Int64("attempt_id", attempt.ID),
		zap.Int("overall_score", report.OverallScore),
		zap.Bool("unlock_eligible", report.UnlockEligible),
		zap.Int("superseded_missions", superseded))

	return Submission{Attempt: attempt, Report: report, Mission: mission, Progress: progress, Unlocked: unlocked}, nil
}

func (s *CourseService) recordProgress(ctx context.Context, unitID string, score int) (domain.Progress, string, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	progress, err := s.repo.LoadProgress(ctx, s.catalog.IDs())
	if err != nil {
		return domain.Progress{}, "", err
	}
	next, _ := progress.RecordAttempt(unitID, score, s.catalog.IDs(), s.thresholds, s.now())
	if err := s.repo.SaveProgress(ctx, progress); err != nil {
		return domain.Progress{}, "", err
	}
	return progress, next, nil
}

// Progress returns the learner's progress.
func (s *CourseService) Progress(ctx context.Context) (domain.Progress, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	return s.repo.LoadProgress(ctx, s.catalog.IDs())
}

// OpenUnit makes an unlocked unit current.
func (s *CourseService) OpenUnit(ctx context.Context, unitID string) (domain.Progress, error) {
	if _, err := s.unit(unitID); err != nil {
		return domain.Progress{}, err
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	progress, err := s.repo.LoadProgress(ctx, s.catalog.IDs())
	if err != nil {
		return domain.Progress{}, err
	}
	if !progress.Open(unitID, s.now()) {
		return progress, fmt.Errorf("%w: %q", ErrUnitLocked, unitID)
	}
	return progress, s.repo.SaveProgress(ctx, progress)
}

// SaveDraft autosaves a working draft.
func (s *CourseService) SaveDraft(ctx context.Context, unitID, draft string) error {
	if _, err := s.unit(unitID); err != nil {
		return err
	}
	return s.repo.SaveDraft(ctx, unitID, draft)
}

// Draft returns the autosaved draft for a unit.
func (s *CourseService) Draft(ctx context.Context, unitID string) (string, error) {
	if _, err := s.unit(unitID); err != nil {
		return "", err
	}
	return s.repo.Draft(ctx, unitID)
}
