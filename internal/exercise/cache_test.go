package exercise

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/catalog"
	"coursecoach/internal/chunker"
	"coursecoach/internal/domain"
	"coursecoach/internal/logging"
)

func stored(unitID string, kind domain.ExerciseKind, prompt string) domain.Exercise {
	return domain.Exercise{UnitID: unitID, Kind: kind, SourceMode: "legacy", Prompt: prompt, TimeboxMinutes: 30}
}

func validFile(units []domain.CourseUnit, exercises ...domain.Exercise) cacheFile {
	return cacheFile{
		SourceName:  "sample.pdf",
		UnitLayout:  catalog.LayoutOf(units),
		ChunkConfig: &chunker.ChunkConfig{MaxChars: 1200},
		Version:     Version,
		Exercises:   exercises,
	}
}

func writeCache(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func readCache(t *testing.T, path string) cacheFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f cacheFile
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestCacheRebuildsDuplicateKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.json")
	units := []domain.CourseUnit{orientation()}
	writeCache(t, path, validFile(units,
		stored("0", domain.ExerciseCore, "Duplicate core"),
		stored("0", domain.ExerciseCore, "Duplicate core"),
		stored("0", domain.ExerciseStretch, "Duplicate stretch"),
	))

	c := NewCache(path, "sample.pdf", 1200, logging.Nop())
	got, err := c.LoadOrBuild(context.Background(), units, map[string][]domain.Chunk{"0": nil})
	require.NoError(t, err)

	specs := got["0"]
	require.Len(t, specs, 2)
	assert.ElementsMatch(t, []domain.ExerciseKind{domain.ExerciseCore, domain.ExerciseStretch}, []domain.ExerciseKind{specs[0].Kind, specs[1].Kind})
	assert.Equal(t, "Track focalization.", specs[0].Objective)
	assert.Len(t, readCache(t, path).Exercises, 2)
}

func TestCacheServesValidExercises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.json")
	units := []domain.CourseUnit{orientation()}
	writeCache(t, path, validFile(units,
		stored("0", domain.ExerciseCore, "Core prompt"),
		stored("0", domain.ExerciseStretch, "Stretch prompt"),
	))

	c := NewCache(path, "sample.pdf", 1200, logging.Nop())
	got, err := c.LoadOrBuild(context.Background(), units, map[string][]domain.Chunk{"0": nil})
	require.NoError(t, err)

	specs := got["0"]
	require.Len(t, specs, 2)
	assert.Equal(t, "Core prompt", specs[0].Prompt)
	assert.Equal(t, "Stretch prompt", specs[1].Prompt)
}

func TestCacheInvalidation(t *testing.T) {
	units := []domain.CourseUnit{orientation(), {ID: "1", Title: "Character", StartPage: 16, EndPage: 34}}
	fresh := func() cacheFile {
		return validFile(units,
			stored("0", domain.ExerciseCore, "Core prompt"),
			stored("0", domain.ExerciseStretch, "Stretch prompt"),
			stored("1", domain.ExerciseCore, "Core prompt"),
			stored("1", domain.ExerciseStretch, "Stretch prompt"),
		)
	}
	tests := []struct {
		name   string
		mutate func(f *cacheFile)
	}{
		{"source changed", func(f *cacheFile) { f.SourceName = "other.pdf" }},
		{"chunk size changed", func(f *cacheFile) { f.ChunkConfig.MaxChars = 800 }},
		{"version changed", func(f *cacheFile) { f.Version = Version + 1 }},
		{"layout changed", func(f *cacheFile) { f.UnitLayout.Units[1].EndPage = 40 }},
		{"unit missing", func(f *cacheFile) { f.Exercises = f.Exercises[:2] }},
		{"stretch missing", func(f *cacheFile) { f.Exercises = f.Exercises[:3] }},
		{"foreign unit", func(f *cacheFile) { f.Exercises = append(f.Exercises, stored("9", domain.ExerciseCore, "x")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fresh()
			tt.mutate(&f)

			path := filepath.Join(t.TempDir(), "exercises.json")
			writeCache(t, path, f)
			c := NewCache(path, "sample.pdf", 1200, logging.Nop())
			got, err := c.LoadOrBuild(context.Background(), units, nil)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.NotEqual(t, "Core prompt", got["1"][0].Prompt)
			assert.True(t, Complete("1", got["1"]))

			rewritten := readCache(t, path)
			assert.Equal(t, "sample.pdf", rewritten.SourceName)
			assert.Len(t, rewritten.Exercises, 4)
		})
	}
}

func TestCacheRebuildsFlatList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.json")
	units := []domain.CourseUnit{orientation()}
	writeCache(t, path, []domain.Exercise{
		stored("0", domain.ExerciseCore, "Core prompt"),
		stored("0", domain.ExerciseStretch, "Stretch prompt"),
	})

	c := NewCache(path, "sample.pdf", 1200, logging.Nop())
	got, err := c.LoadOrBuild(context.Background(), units, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "Core prompt", got["0"][0].Prompt)
	assert.Equal(t, Version, readCache(t, path).Version)
}

func TestCacheHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCache(filepath.Join(t.TempDir(), "exercises.json"), "sample.pdf", 1200, logging.Nop())
	_, err := c.LoadOrBuild(ctx, []domain.CourseUnit{orientation()}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
