package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"coursecoach/internal/catalog"
	"coursecoach/internal/chunker"
	"coursecoach/internal/domain"
)

// Version is bumped whenever the exercise layout changes.
const Version = 1

type cacheFile struct {
	SourceName  string               `json:"source_pdf"`
	UnitLayout  catalog.UnitLayout   `json:"unit_layout"`
	ChunkConfig *chunker.ChunkConfig `json:"chunk_config,omitempty"`
	Version     int                  `json:"exercise_version"`
	Exercises   []domain.Exercise    `json:"exercises"`
}

// Cache persists the exercises of a whole catalog. The file is rebuilt when
// it is unreadable, stale, or any unit lacks exactly one core and one
// stretch exercise.
type Cache struct {
	path       string
	sourceName string
	maxChars   int
	log        *zap.Logger
}

// NewCache creates a cache stored at path.
func NewCache(path, sourceName string, maxChars int, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{path: path, sourceName: sourceName, maxChars: maxChars, log: log}
}

func (c *Cache) compatible(f *cacheFile, units []domain.CourseUnit) bool {
	if f.SourceName != c.sourceName || !f.UnitLayout.Equal(catalog.LayoutOf(units)) {
		return false
	}
	if f.ChunkConfig == nil || f.ChunkConfig.MaxChars != c.maxChars {
		return false
	}
	return f.Version == Version
}

func (c *Cache) cached(units []domain.CourseUnit) (map[string][]domain.Exercise, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("exercise cache unreadable; rebuilding", zap.String("path", c.path), zap.Error(err))
		}
		return nil, false
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Warn("exercise cache malformed; rebuilding", zap.String("path", c.path), zap.Error(err))
		return nil, false
	}
	if !c.compatible(&f, units) {
		c.log.Info("exercise cache stale; rebuilding", zap.String("path", c.path))
		return nil, false
	}
	byUnit := group(f.Exercises)
	if len(byUnit) != len(units) {
		return nil, false
	}
	for _, u := range units {
		if !Complete(u.ID, byUnit[u.ID]) {
			c.log.Info("exercise cache incomplete; rebuilding", zap.String("unit_id", u.ID))
			return nil, false
		}
	}
	return byUnit, true
}

// LoadOrBuild returns the core and stretch exercises of every unit, from the
// cache when it is valid and otherwise by rebuilding and rewriting it.
func (c *Cache) LoadOrBuild(ctx context.Context, units []domain.CourseUnit, chunksByUnit map[string][]domain.Chunk) (map[string][]domain.Exercise, error) {
	if byUnit, ok := c.cached(units); ok {
		return byUnit, nil
	}

	var all []domain.Exercise
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build exercises: %w", err)
		}
		all = append(all, Build(u, chunksByUnit[u.ID])...)
	}

	f := cacheFile{
		SourceName:  c.sourceName,
		UnitLayout:  catalog.LayoutOf(units),
		ChunkConfig: &chunker.ChunkConfig{MaxChars: c.maxChars},
		Version:     Version,
		Exercises:   all,
	}
	if err := c.write(f); err != nil {
		return nil, err
	}
	return group(all), nil
}

func group(exercises []domain.Exercise) map[string][]domain.Exercise {
	byUnit := make(map[string][]domain.Exercise)
	for _, e := range exercises {
		byUnit[e.UnitID] = append(byUnit[e.UnitID], e)
	}
	return byUnit
}

func (c *Cache) write(f cacheFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write exercise cache: %w", err)
	}
	return nil
}
