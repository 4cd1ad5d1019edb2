package service

import (
	"context"

	"coursecoach/internal/domain"
	"coursecoach/internal/exercise"
)

// Exercises returns the core and stretch exercises of a unit, core first.
func (s *CourseService) Exercises(ctx context.Context, unitID string) ([]domain.Exercise, error) {
	if _, err := s.unit(unitID); err != nil {
		return nil, err
	}
	all, err := s.AllExercises(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Exercise
	for _, kind := range []domain.ExerciseKind{domain.ExerciseCore, domain.ExerciseStretch} {
		if e, ok := exercise.ByKind(all[unitID], kind); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// AllExercises returns the exercises of every unit, loading the exercise
// cache once.
func (s *CourseService) AllExercises(ctx context.Context) (map[string][]domain.Exercise, error) {
	s.exercisesMu.Lock()
	defer s.exercisesMu.Unlock()
	if s.exercises != nil {
		return s.exercises, nil
	}

	units := s.catalog.Units()
	byUnit, err := s.chunksByUnit(ctx)
	if err != nil {
		return nil, err
	}
	if s.caches.Exercises == nil {
		all := make(map[string][]domain.Exercise, len(units))
		for _, u := range units {
			all[u.ID] = exercise.Build(u, byUnit[u.ID])
		}
		s.exercises = all
		return all, nil
	}
	all, err := s.caches.Exercises.LoadOrBuild(ctx, units, byUnit)
	if err != nil {
		return nil, err
	}
	s.exercises = all
	return all, nil
}
