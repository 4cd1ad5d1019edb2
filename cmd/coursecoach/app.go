package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"coursecoach/internal/catalog"
	"coursecoach/internal/chunker"
	"coursecoach/internal/coach"
	"coursecoach/internal/config"
	"coursecoach/internal/domain"
	"coursecoach/internal/exercise"
	"coursecoach/internal/feedback"
	"coursecoach/internal/generation"
	"coursecoach/internal/lesson"
	"coursecoach/internal/logging"
	"coursecoach/internal/ranking"
	"coursecoach/internal/revision"
	"coursecoach/internal/service"
	"coursecoach/internal/store/memory"
	"coursecoach/internal/store/sqlite"
)

type application struct {
	cfg     *config.AppConfig
	log     *zap.Logger
	catalog *catalog.Catalog
	svc     *service.CourseService
	closers []func() error
	closed  bool
}

// newBaseApplication loads config, logger and catalog only.
func newBaseApplication(path, level string) (*application, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level != "" {
		cfg.Logging.Level = level
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cat, err := catalog.Load(cfg.Course.UnitsPath)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	return &application{cfg: cfg, log: log, catalog: cat}, nil
}

func newApplication(ctx context.Context, path, level string) (*application, error) {
	a, err := newBaseApplication(path, level)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg

	chunks, err := a.chunkSource()
	if err != nil {
		return nil, err
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "none", "":
	case "openai":
		client, err := generation.NewOpenAIClient(generation.OpenAIConfig{
			BaseURL:   cfg.Generator.BaseURL,
			APIKeyEnv: cfg.Generator.APIKeyEnv,
			Model:     cfg.Generator.Model,
			Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		})
		if err != nil {
			a.log.Warn("generator unavailable; using local fallbacks", zap.Error(err))
		} else {
			gen = client
		}
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}
	var adapter *generation.Adapter
	if gen != nil {
		adapter = generation.NewAdapter(gen, time.Duration(cfg.Generator.TimeoutSecs)*time.Second, a.log)
	}

	var repo service.Repository
	switch cfg.Storage.Type {
	case "memory":
		repo = memory.NewStorage()
	case "sqlite", "":
		st, err := sqlite.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		repo = st
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Storage.Type)
	}

	th := cfg.Thresholds()
	lessonEngine := lesson.NewEngine(adapter, a.log)
	engines := service.Engines{
		Coach:    coach.NewEngine(ranking.NewRanker(th, a.log), adapter, a.log),
		Feedback: feedback.NewEngine(adapter, generation.ProfilesFromConfig(cfg.Generator.Profiles), th, a.log),
		Lesson:   lessonEngine,
		Revision: revision.NewEngine(adapter, a.log),
	}
	var caches service.Caches
	if cfg.Course.LessonCachePath != "" {
		caches.Lessons = lesson.NewCache(cfg.Course.LessonCachePath, cfg.Course.SourceName, cfg.Course.ChunkChars, lessonEngine, a.log)
	}
	if cfg.Course.ExerciseCachePath != "" {
		caches.Exercises = exercise.NewCache(cfg.Course.ExerciseCachePath, cfg.Course.SourceName, cfg.Course.ChunkChars, a.log)
	}
	a.svc = service.NewCourseService(a.catalog, chunks, engines, caches, repo, th, a.log)
	return a, nil
}

// chunkSource loads the chunk cache. A missing cache leaves every unit
// without evidence, so questions are refused until ingest runs.
func (a *application) chunkSource() (domain.ChunkSource, error) {
	src, err := chunker.LoadFileSource(a.cfg.Course.ChunksPath, a.cfg.Course.SourceName, a.catalog, a.cfg.Course.ChunkChars)
	switch {
	case err == nil:
		return src, nil
	case errors.Is(err, os.ErrNotExist):
		a.log.Warn("no chunk cache; run ingest to load course text", zap.String("path", a.cfg.Course.ChunksPath))
		return chunker.NewFileSource(nil), nil
	case errors.Is(err, chunker.ErrStaleCache):
		return nil, fmt.Errorf("%s is stale for the current units or chunk size; run ingest again: %w", a.cfg.Course.ChunksPath, err)
	default:
		return nil, err
	}
}

// currentUnit resolves the --unit flag, defaulting to the learner's current unit.
func (a *application) currentUnit(ctx context.Context) (domain.CourseUnit, error) {
	id := unitID
	if id == "" {
		p, err := a.svc.Progress(ctx)
		if err != nil {
			return domain.CourseUnit{}, err
		}
		id = p.CurrentUnitID
	}
	u, ok := a.catalog.ByID(id)
	if !ok {
		return domain.CourseUnit{}, fmt.Errorf("%w: %q", service.ErrUnknownUnit, id)
	}
	return u, nil
}

// Close releases the store and flushes the logger. Repeated calls are no-ops.
func (a *application) Close() {
	if a.closed {
		return
	}
	a.closed = true
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
