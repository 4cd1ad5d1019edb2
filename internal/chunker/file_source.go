package chunker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coursecoach/internal/catalog"
	"coursecoach/internal/domain"
)

// ErrStaleCache reports a chunk file built from a different source or layout.
var ErrStaleCache = errors.New("chunk cache does not match current source or unit layout")

// ChunkConfig records the chunking parameters of a cache file.
type ChunkConfig struct {
	MaxChars int `json:"max_chars"`
}

// CacheFile is the on-disk chunk cache.
type CacheFile struct {
	SourceName  string             `json:"source_pdf"`
	UnitLayout  catalog.UnitLayout `json:"unit_layout"`
	ChunkConfig *ChunkConfig       `json:"chunk_config,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Chunks      []domain.Chunk     `json:"chunks"`
}

// Compatible reports whether the cache was built for sourceName, layout and maxChars.
func (f CacheFile) Compatible(sourceName string, layout catalog.UnitLayout, maxChars int) bool {
	if f.SourceName != sourceName {
		return false
	}
	if !f.UnitLayout.Equal(layout) {
		return false
	}
	if f.ChunkConfig == nil {
		return false
	}
	return f.ChunkConfig.MaxChars == maxChars
}

// FileSource serves chunks per unit from a chunk cache file.
type FileSource struct {
	byUnit map[string][]domain.Chunk
}

var _ domain.ChunkSource = (*FileSource)(nil)

// NewFileSource indexes chunks by unit, preserving order.
func NewFileSource(chunks []domain.Chunk) *FileSource {
	s := &FileSource{byUnit: make(map[string][]domain.Chunk)}
	for _, ch := range chunks {
		s.byUnit[ch.UnitID] = append(s.byUnit[ch.UnitID], ch)
	}
	return s
}

// LoadFileSource reads a chunk cache and checks it against the current inputs.
func LoadFileSource(path, sourceName string, cat *catalog.Catalog, maxChars int) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk cache: %w", err)
	}
	var f CacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode chunk cache: %w", err)
	}
	if !f.Compatible(sourceName, cat.Layout(), maxChars) {
		return nil, ErrStaleCache
	}
	return NewFileSource(f.Chunks), nil
}

// Chunks returns the chunks of unitID in ingestion order.
func (s *FileSource) Chunks(_ context.Context, unitID string) ([]domain.Chunk, error) {
	return append([]domain.Chunk(nil), s.byUnit[unitID]...), nil
}

// Build chunks every unit of cat from pages and writes the cache to path.
func Build(path, sourceName string, cat *catalog.Catalog, c *PageChunker, pages []string) (*FileSource, error) {
	var all []domain.Chunk
	for _, u := range cat.Units() {
		all = append(all, c.ChunkUnit(u, pages)...)
	}
	f := CacheFile{
		SourceName:  sourceName,
		UnitLayout:  cat.Layout(),
		ChunkConfig: &ChunkConfig{MaxChars: c.MaxChars()},
		GeneratedAt: time.Now().UTC(),
		Chunks:      all,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write chunk cache: %w", err)
	}
	return NewFileSource(all), nil
}
