package domain

import (
	"slices"
	"time"
)

// NewProgress returns the starting progress: the first unit open and current.
func NewProgress(unitIDs []string, now time.Time) Progress {
	first := "0"
	if len(unitIDs) > 0 {
		first = unitIDs[0]
	}
	return Progress{
		CurrentUnitID:   first,
		UnlockedUnits:   []string{first},
		Attempts:        map[string]int{},
		BestScoreByUnit: map[string]int{},
		LastOpenedAt:    now,
	}
}

// Reconcile drops units no longer in unitIDs and keeps the current unit
// among the unlocked ones.
func (p *Progress) Reconcile(unitIDs []string) {
	known := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		known[id] = struct{}{}
	}
	unlocked := p.UnlockedUnits[:0]
	for _, id := range p.UnlockedUnits {
		if _, ok := known[id]; ok {
			unlocked = append(unlocked, id)
		}
	}
	p.UnlockedUnits = unlocked
	if len(p.UnlockedUnits) == 0 {
		p.UnlockedUnits = []string{NewProgress(unitIDs, time.Time{}).CurrentUnitID}
	}
	if !slices.Contains(p.UnlockedUnits, p.CurrentUnitID) {
		p.CurrentUnitID = p.UnlockedUnits[0]
	}
	if p.Attempts == nil {
		p.Attempts = map[string]int{}
	}
	if p.BestScoreByUnit == nil {
		p.BestScoreByUnit = map[string]int{}
	}
}

// RecordAttempt counts an attempt on unitID and unlocks the following unit
// in order when score clears the unlock threshold. It reports the unit it
// newly unlocked, if any.
func (p *Progress) RecordAttempt(unitID string, score int, order []string, t Thresholds, now time.Time) (string, bool) {
	if p.Attempts == nil {
		p.Attempts = map[string]int{}
	}
	if p.BestScoreByUnit == nil {
		p.BestScoreByUnit = map[string]int{}
	}
	p.Attempts[unitID]++
	p.BestScoreByUnit[unitID] = max(p.BestScoreByUnit[unitID], score)
	p.LastOpenedAt = now

	if !t.Unlocks(score) {
		return "", false
	}
	idx := slices.Index(order, unitID)
	if idx < 0 || idx+1 >= len(order) {
		return "", false
	}
	next := order[idx+1]
	if slices.Contains(p.UnlockedUnits, next) {
		return "", false
	}
	p.UnlockedUnits = append(p.UnlockedUnits, next)
	slices.SortFunc(p.UnlockedUnits, func(a, b string) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
	return next, true
}

// Open makes unitID current if it is unlocked.
func (p *Progress) Open(unitID string, now time.Time) bool {
	if !slices.Contains(p.UnlockedUnits, unitID) {
		return false
	}
	p.CurrentUnitID = unitID
	p.LastOpenedAt = now
	return true
}
