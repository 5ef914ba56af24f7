package service

import (
	"testing"
	"time"

	"sc2-ladder-tracker/internal/api"
	"sc2-ladder-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMainRace(t *testing.T) {
	tests := []struct {
		name  string
		games map[string]int
		want  string
		ok    bool
	}{
		{"clear winner", map[string]int{"TERRAN": 30, "PROTOSS": 5}, "TERRAN", true},
		{"tie resolves to canonical order", map[string]int{"TERRAN": 10, "PROTOSS": 10}, "TERRAN", true},
		{"zerg beats protoss on tie", map[string]int{"PROTOSS": 7, "ZERG": 7}, "ZERG", true},
		{"all zero", map[string]int{"TERRAN": 0, "ZERG": 0}, "", false},
		{"empty", map[string]int{}, "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectMainRace(tt.games)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectMainRaceDeterministicAcrossRuns(t *testing.T) {
	games := map[string]int{"TERRAN": 10, "PROTOSS": 10}
	first, _ := selectMainRace(games)
	for range 100 {
		got, _ := selectMainRace(games)
		assert.Equal(t, first, got)
	}
}

func TestConstituentForSplitRace(t *testing.T) {
	// TERRAN games split across two constituents: the record contributing
	// the larger share wins
	cp := &domain.ConsolidatedPlayer{
		BattleTag: "A#1",
		Ratings:   []int{3000, 3400},
		RaceGames: []map[string]int{
			{"TERRAN": 10},
			{"TERRAN": 25},
		},
		TotalRaceGames: map[string]int{"TERRAN": 35},
	}
	assert.Equal(t, 1, constituentFor(cp, "TERRAN"))

	// equal shares resolve to the earliest constituent
	cp.RaceGames[1]["TERRAN"] = 10
	assert.Equal(t, 0, constituentFor(cp, "TERRAN"))
}

func TestBuildRankedPlayerEndToEnd(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 20, 0, 0, time.UTC)
	activity := testClassifier(t, now)

	teams := []api.LadderTeam{{
		Rating: 3500, Wins: 20, Losses: 15, Ties: 0,
		LeagueType: 6, GlobalRank: 12, RegionRank: 3, LeagueRank: 1,
		LastPlayed: "2024-01-15T10:00:00Z",
		Members: []api.TeamMember{{
			Account:   &domain.Account{BattleTag: "A#1", ID: 7},
			Character: &domain.Character{ID: 99},
			RaceGames: map[string]int{"TERRAN": 30, "PROTOSS": 5},
		}},
	}}

	players, order, _ := Consolidate(teams)
	require.Equal(t, []string{"A#1"}, order)

	resolver := NewNameResolver(nil)
	player, ok := BuildRankedPlayer(players["A#1"], resolver, activity)
	require.True(t, ok)

	assert.Equal(t, "TERRAN", player.Race)
	assert.Equal(t, 35, player.TotalGames)
	assert.Equal(t, 35, player.GamesThisSeason)
	assert.Equal(t, 3500, player.Rating)
	assert.Equal(t, 20, player.Wins)
	assert.Equal(t, 15, player.Losses)
	assert.Equal(t, 0, player.Ties)
	assert.Equal(t, 6, player.LeagueType)
	assert.Equal(t, int64(99), player.CharacterID)
	assert.Equal(t, "A", player.Name)
	assert.True(t, player.Online)
}

func TestBuildRankedPlayerSelectsMainRaceConstituent(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	activity := testClassifier(t, now)

	teams := []api.LadderTeam{
		{
			Rating: 3000, Wins: 5, Losses: 5,
			LastPlayed: "2024-01-10T08:00:00Z",
			Members: []api.TeamMember{{
				Account:   &domain.Account{BattleTag: "A#1"},
				RaceGames: map[string]int{"ZERG": 10},
			}},
		},
		{
			Rating: 3600, Wins: 25, Losses: 10,
			LastPlayed: "2024-01-15T11:45:00Z",
			Members: []api.TeamMember{{
				Account:   &domain.Account{BattleTag: "A#1"},
				RaceGames: map[string]int{"TERRAN": 35},
			}},
		},
	}

	players, _, _ := Consolidate(teams)
	player, ok := BuildRankedPlayer(players["A#1"], NewNameResolver(nil), activity)
	require.True(t, ok)

	// TERRAN wins, so the second constituent's scalars apply
	assert.Equal(t, "TERRAN", player.Race)
	assert.Equal(t, 3600, player.Rating)
	assert.Equal(t, 25, player.Wins)
	assert.Equal(t, 45, player.TotalGames)
	assert.Equal(t, 45, player.GamesThisSeason)
	assert.True(t, player.Online)
}

func TestBuildRankedPlayerFiltersNoRaceData(t *testing.T) {
	activity := testClassifier(t, time.Now())

	teams := []api.LadderTeam{{
		Rating: 3000,
		Members: []api.TeamMember{{
			Account: &domain.Account{BattleTag: "A#1"},
		}},
	}}

	players, _, _ := Consolidate(teams)
	_, ok := BuildRankedPlayer(players["A#1"], NewNameResolver(nil), activity)
	assert.False(t, ok)
}

func TestNameResolver(t *testing.T) {
	resolver := NewNameResolver([]domain.RosterEntry{
		{CharacterID: 1, BattleTag: "Serral#1234", Name: "Serral"},
		{CharacterID: 2, BattleTag: "NoName#5678"},
	})

	assert.Equal(t, "Serral", resolver.Resolve("Serral#1234"))
	assert.Equal(t, "NoName", resolver.Resolve("NoName#5678"))
	assert.Equal(t, "Stranger", resolver.Resolve("Stranger#9"))
	assert.Equal(t, "odd-tag", resolver.Resolve("odd-tag"))
}
