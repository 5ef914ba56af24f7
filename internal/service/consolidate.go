package service

import (
	"sc2-ladder-tracker/internal/api"
	"sc2-ladder-tracker/internal/domain"
)

// Consolidate groups ladder team records by battle-tag and merges each group
// into one ConsolidatedPlayer. Scalar fields are appended to the parallel
// slices in input order; race-game counts are merged additively. Records
// without an identifiable battle-tag are dropped and counted, never fatal.
//
// The returned order slice holds battle-tags in first-appearance order so
// downstream sorting stays deterministic for equal ratings.
func Consolidate(teams []api.LadderTeam) (players map[string]*domain.ConsolidatedPlayer, order []string, dropped int) {
	players = make(map[string]*domain.ConsolidatedPlayer, len(teams))

	for _, team := range teams {
		tag := team.BattleTag()
		if tag == "" {
			dropped++
			continue
		}

		cp, ok := players[tag]
		if !ok {
			cp = &domain.ConsolidatedPlayer{
				BattleTag:      tag,
				TotalRaceGames: make(map[string]int),
			}
			players[tag] = cp
			order = append(order, tag)
		}

		cp.Ratings = append(cp.Ratings, team.Rating)
		cp.Wins = append(cp.Wins, team.Wins)
		cp.Losses = append(cp.Losses, team.Losses)
		cp.Ties = append(cp.Ties, team.Ties)
		cp.LeagueTypes = append(cp.LeagueTypes, team.LeagueType)
		cp.GlobalRanks = append(cp.GlobalRanks, team.GlobalRank)
		cp.RegionRanks = append(cp.RegionRanks, team.RegionRank)
		cp.LeagueRanks = append(cp.LeagueRanks, team.LeagueRank)
		cp.LastPlayed = append(cp.LastPlayed, team.LastPlayed)

		constituent := make(map[string]int)
		for _, m := range team.Members {
			for race, games := range m.RaceGames {
				constituent[race] += games
				cp.TotalRaceGames[race] += games
			}
			// account and clan merge last-write-wins
			if m.Account != nil {
				cp.Account = *m.Account
			}
			if m.Character != nil {
				cp.Character = *m.Character
			}
			if m.Clan != "" {
				cp.Character.Clan = m.Clan
			}
		}
		cp.RaceGames = append(cp.RaceGames, constituent)
	}

	return players, order, dropped
}
