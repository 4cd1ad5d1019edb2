package service

import (
	"context"

	"coursecoach/internal/domain"
)

// LessonPack returns the study pack for a unit.
func (s *CourseService) LessonPack(ctx context.Context, unitID string) (domain.LessonPack, error) {
	unit, err := s.unit(unitID)
	if err != nil {
		return domain.LessonPack{}, err
	}
	if s.caches.Lessons == nil {
		chunks, err := s.unitChunks(ctx, unitID)
		if err != nil {
			return domain.LessonPack{}, err
		}
		return s.engines.Lesson.Build(ctx, unit, chunks), nil
	}
	packs, err := s.LessonPacks(ctx)
	if err != nil {
		return domain.LessonPack{}, err
	}
	return packs[unitID], nil
}

// LessonPacks returns packs for every unit, loading the pack cache once.
func (s *CourseService) LessonPacks(ctx context.Context) (map[string]domain.LessonPack, error) {
	s.packsMu.Lock()
	defer s.packsMu.Unlock()
	if s.packs != nil {
		return s.packs, nil
	}

	units := s.catalog.Units()
	byUnit, err := s.chunksByUnit(ctx)
	if err != nil {
		return nil, err
	}
	if s.caches.Lessons == nil {
		packs := make(map[string]domain.LessonPack, len(units))
		for _, u := range units {
			packs[u.ID] = s.engines.Lesson.Build(ctx, u, byUnit[u.ID])
		}
		s.packs = packs
		return packs, nil
	}
	packs, err := s.caches.Lessons.LoadOrBuild(ctx, units, byUnit)
	if err != nil {
		return nil, err
	}
	s.packs = packs
	return packs, nil
}
