package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coursecoach/internal/catalog"
	"coursecoach/internal/chunker"
	"coursecoach/internal/domain"
)

// PackVersion is bumped whenever the pack layout changes.
const PackVersion = 1

const defaultBuildWorkers = 4

type cacheFile struct {
	SourceName  string               `json:"source_pdf"`
	UnitLayout  catalog.UnitLayout   `json:"unit_layout"`
	ChunkConfig *chunker.ChunkConfig `json:"chunk_config,omitempty"`
	PackVersion int                  `json:"pack_version"`
	Packs       []domain.LessonPack  `json:"packs"`
}

// Cache persists lesson packs for a whole catalog. Packs are rebuilt when the
// source, unit layout, chunk size or pack version change.
type Cache struct {
	path       string
	sourceName string
	maxChars   int
	engine     *Engine
	workers    int
	log        *zap.Logger
}

// NewCache creates a cache stored at path.
func NewCache(path, sourceName string, maxChars int, engine *Engine, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		path:       path,
		sourceName: sourceName,
		maxChars:   maxChars,
		engine:     engine,
		workers:    defaultBuildWorkers,
		log:        log,
	}
}

func (c *Cache) compatible(f *cacheFile, units []domain.CourseUnit) bool {
	if f.SourceName != c.sourceName || !f.UnitLayout.Equal(catalog.LayoutOf(units)) {
		return false
	}
	if f.ChunkConfig == nil || f.ChunkConfig.MaxChars != c.maxChars {
		return false
	}
	return f.PackVersion == PackVersion
}

func (c *Cache) read() (*cacheFile, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// cached returns the stored packs when every unit has a valid one.
func (c *Cache) cached(units []domain.CourseUnit) (map[string]domain.LessonPack, bool) {
	f, err := c.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("lesson cache unreadable; rebuilding", zap.String("path", c.path), zap.Error(err))
		}
		return nil, false
	}
	if !c.compatible(f, units) {
		c.log.Info("lesson cache stale; rebuilding", zap.String("path", c.path))
		return nil, false
	}
	packs := make(map[string]domain.LessonPack, len(f.Packs))
	for _, p := range f.Packs {
		packs[p.UnitID] = p
	}
	if len(packs) != len(units) {
		return nil, false
	}
	for _, u := range units {
		p, ok := packs[u.ID]
		if !ok || !ValidFor(p, u) {
			return nil, false
		}
	}
	return packs, true
}

// LoadOrBuild returns one pack per unit, from the cache when it is valid and
// otherwise by rebuilding every pack and rewriting the cache.
func (c *Cache) LoadOrBuild(ctx context.Context, units []domain.CourseUnit, chunksByUnit map[string][]domain.Chunk) (map[string]domain.LessonPack, error) {
	if packs, ok := c.cached(units); ok {
		return packs, nil
	}

	built := make([]domain.LessonPack, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i] = c.engine.Build(gctx, u, chunksByUnit[u.ID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build lesson packs: %w", err)
	}

	f := cacheFile{
		SourceName:  c.sourceName,
		UnitLayout:  catalog.LayoutOf(units),
		ChunkConfig: &chunker.ChunkConfig{MaxChars: c.maxChars},
		PackVersion: PackVersion,
		Packs:       built,
	}
	if err := c.write(f); err != nil {
		return nil, err
	}

	packs := make(map[string]domain.LessonPack, len(built))
	for _, p := range built {
		packs[p.UnitID] = p
	}
	return packs, nil
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
		return fmt.Errorf("write lesson cache: %w", err)
	}
	return nil
}
