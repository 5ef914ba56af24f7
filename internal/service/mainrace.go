package service

import (
	"sort"

	"sc2-ladder-tracker/internal/domain"
)

// NameResolver maps battle-tags to curated display names, falling back to
// the battle-tag prefix when the roster has no entry.
type NameResolver struct {
	names map[string]string
}

func NewNameResolver(roster []domain.RosterEntry) *NameResolver {
	names := make(map[string]string, len(roster))
	for _, e := range roster {
		if e.Name != "" {
			names[e.BattleTag] = e.Name
		}
	}
	return &NameResolver{names: names}
}

// Resolve returns the curated display name for a battle-tag, or a name
// derived from the tag itself.
func (r *NameResolver) Resolve(battleTag string) string {
	if name, ok := r.names[battleTag]; ok {
		return name
	}
	return domain.FallbackName(battleTag)
}

// raceIterationOrder returns the race keys of games in a deterministic
// order: the four canonical races first, then any other keys sorted.
func raceIterationOrder(games map[string]int) []string {
	order := make([]string, 0, len(games))
	seen := make(map[string]bool, len(games))
	for _, race := range domain.CanonicalRaces {
		if _, ok := games[race]; ok {
			order = append(order, race)
			seen[race] = true
		}
	}
	var extra []string
	for race := range games {
		if !seen[race] {
			extra = append(extra, race)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// selectMainRace picks the race with the strictly greatest merged game
// count. Ties resolve to the first race in iteration order. Returns false
// when no race has any games.
func selectMainRace(total map[string]int) (string, bool) {
	var (
		winner string
		best   int
	)
	for _, race := range raceIterationOrder(total) {
		if total[race] > best {
			winner = race
			best = total[race]
		}
	}
	return winner, best > 0
}

// constituentFor picks the index of the constituent record that contributed
// the largest single share of the winning race. Ties resolve to the earliest
// constituent. A race's games can be split across constituents, so the
// merged total alone cannot identify a record; the per-constituent breakdown
// kept by the consolidator disambiguates.
func constituentFor(cp *domain.ConsolidatedPlayer, race string) int {
	idx := 0
	best := -1
	for i, games := range cp.RaceGames {
		if games[race] > best {
			idx = i
			best = games[race]
		}
	}
	return idx
}

// BuildRankedPlayer flattens one ConsolidatedPlayer into a RankedPlayer by
// selecting its main race and extracting the scalar values of the
// constituent record that carries it. Players with no recorded games are
// filtered out (second return false), silently.
func BuildRankedPlayer(cp *domain.ConsolidatedPlayer, resolver *NameResolver, activity *ActivityClassifier) (domain.RankedPlayer, bool) {
	race, ok := selectMainRace(cp.TotalRaceGames)
	if !ok || cp.Len() == 0 {
		return domain.RankedPlayer{}, false
	}

	i := constituentFor(cp, race)

	total := 0
	raceGames := make(map[string]int, len(cp.TotalRaceGames))
	for r, games := range cp.TotalRaceGames {
		raceGames[r] = games
		total += games
	}

	seasonGames := 0
	for j := 0; j < cp.Len(); j++ {
		seasonGames += cp.Wins[j] + cp.Losses[j] + cp.Ties[j]
	}

	lastPlayed := cp.LastPlayed[i]
	player := domain.RankedPlayer{
		CharacterID:     cp.Character.ID,
		Name:            resolver.Resolve(cp.BattleTag),
		BattleTag:       cp.BattleTag,
		Clan:            cp.Character.Clan,
		Rating:          cp.Ratings[i],
		Race:            race,
		TotalGames:      total,
		GamesThisSeason: seasonGames,
		RaceGames:       raceGames,
		Wins:            cp.Wins[i],
		Losses:          cp.Losses[i],
		Ties:            cp.Ties[i],
		LeagueType:      cp.LeagueTypes[i],
		GlobalRank:      cp.GlobalRanks[i],
		RegionRank:      cp.RegionRanks[i],
		LeagueRank:      cp.LeagueRanks[i],

		LastDatePlayed: activity.FormatLastPlayed(lastPlayed),
		Online:         activity.Online(lastPlayed),
	}
	if t, ok := activity.parse(lastPlayed); ok {
		player.LastPlayed = t
	}
	return player, true
}
