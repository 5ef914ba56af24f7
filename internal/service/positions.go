package service

import "sc2-ladder-tracker/internal/domain"

// ApplyPositionChanges annotates current with movement indicators relative
// to previous and returns aggregate movement stats. Players are matched by
// battle-tag; entries without one cannot be matched and are left untouched.
// A player absent from previous gets indicator "none" with no previous rank
// recorded, which is what distinguishes a new entrant from an unmoved one.
func ApplyPositionChanges(current []domain.RankedPlayer, previous []domain.RankedPlayer) domain.ChangeStats {
	prevIndex := make(map[string]int, len(previous))
	for i, p := range previous {
		if p.BattleTag == "" {
			continue
		}
		if _, ok := prevIndex[p.BattleTag]; !ok {
			prevIndex[p.BattleTag] = i
		}
	}

	var stats domain.ChangeStats
	for i := range current {
		p := &current[i]
		if p.BattleTag == "" {
			continue
		}

		prev, ok := prevIndex[p.BattleTag]
		if !ok {
			p.Change = domain.ChangeNone
			p.PreviousRank = nil
			stats.New++
			continue
		}

		rank := prev
		p.PreviousRank = &rank
		switch {
		case i < prev:
			p.Change = domain.ChangeUp
			stats.Up++
		case i > prev:
			p.Change = domain.ChangeDown
			stats.Down++
		default:
			p.Change = domain.ChangeNone
			stats.Unchanged++
		}
	}
	return stats
}

// PositionChanges computes the transient per-player movement list for two
// rankings without touching either one.
func PositionChanges(current []domain.RankedPlayer, previous []domain.RankedPlayer) ([]domain.PositionChange, domain.ChangeStats) {
	annotated := make([]domain.RankedPlayer, len(current))
	copy(annotated, current)
	stats := ApplyPositionChanges(annotated, previous)

	changes := make([]domain.PositionChange, 0, len(annotated))
	for i, p := range annotated {
		if p.BattleTag == "" {
			continue
		}
		changes = append(changes, domain.PositionChange{
			BattleTag:     p.BattleTag,
			CurrentIndex:  i,
			PreviousIndex: p.PreviousRank,
			Indicator:     p.Change,
		})
	}
	return changes, stats
}
