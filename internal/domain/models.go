package domain

import (
	"strings"
	"time"
)

// Canonical races in upstream payloads. Iteration over race maps happens in
// this order (then any unknown keys, sorted) so tie-breaks are deterministic.
const (
	RaceTerran  = "TERRAN"
	RaceZerg    = "ZERG"
	RaceProtoss = "PROTOSS"
	RaceRandom  = "RANDOM"
)

var CanonicalRaces = []string{RaceTerran, RaceZerg, RaceProtoss, RaceRandom}

// Change indicators for position diffing.
const (
	ChangeUp   = "up"
	ChangeDown = "down"
	ChangeNone = "none"
)

type Account struct {
	ID        int64  `json:"id,omitempty"`
	BattleTag string `json:"battleTag,omitempty"`
}

type Character struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Clan string `json:"clan,omitempty"`
}

// ConsolidatedPlayer aggregates every ladder team record sharing one
// battle-tag. The slices are parallel: index i across all of them refers to
// the same constituent record. RaceGames keeps the per-constituent breakdown
// so the main-race selector can attribute a winning race to a specific
// constituent; TotalRaceGames is the additive merge across constituents.
type ConsolidatedPlayer struct {
	BattleTag string
	Account   Account
	Character Character

	Ratings     []int
	Wins        []int
	Losses      []int
	Ties        []int
	LeagueTypes []int
	GlobalRanks []int
	RegionRanks []int
	LeagueRanks []int
	LastPlayed  []string
	RaceGames   []map[string]int

	TotalRaceGames map[string]int
}

// Len reports the number of constituent records.
func (p *ConsolidatedPlayer) Len() int { return len(p.Ratings) }

// RankedPlayer is one row of the final ranking. Created fresh on every
// computation and never mutated afterwards, except for the position-change
// fields which are filled in before the snapshot is published.
type RankedPlayer struct {
	CharacterID     int64          `json:"characterId,omitempty"`
	Name            string         `json:"name"`
	BattleTag       string         `json:"battleTag"`
	Clan            string         `json:"clan,omitempty"`
	Rating          int            `json:"rating"`
	Race            string         `json:"race,omitempty"`
	TotalGames      int            `json:"totalGames"`
	GamesThisSeason int            `json:"gamesThisSeason"`
	RaceGames       map[string]int `json:"raceGames"`
	Wins            int            `json:"wins"`
	Losses          int            `json:"losses"`
	Ties            int            `json:"ties"`
	LeagueType      int            `json:"leagueType"`
	GlobalRank      int            `json:"globalRank"`
	RegionRank      int            `json:"regionRank"`
	LeagueRank      int            `json:"leagueRank"`

	LastPlayed     time.Time `json:"lastPlayed,omitempty"`
	LastDatePlayed string    `json:"lastDatePlayed"`
	Online         bool      `json:"online"`

	Change       string `json:"change,omitempty"`
	PreviousRank *int   `json:"previousRank,omitempty"`
}

// RankingSnapshot is an ordered ranking, sorted descending by rating.
// Stats is set when the snapshot was diffed against a baseline.
type RankingSnapshot struct {
	Players   []RankedPlayer `json:"players"`
	Stats     *ChangeStats   `json:"changeStats,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PositionChange describes one player's movement between two snapshots.
// PreviousIndex is nil for new entrants.
type PositionChange struct {
	BattleTag     string `json:"battleTag"`
	CurrentIndex  int    `json:"currentIndex"`
	PreviousIndex *int   `json:"previousIndex,omitempty"`
	Indicator     string `json:"indicator"`
}

// ChangeStats aggregates movement across a ranking comparison.
type ChangeStats struct {
	Up        int `json:"up"`
	Down      int `json:"down"`
	Unchanged int `json:"unchanged"`
	New       int `json:"new"`
}

// RosterEntry is one curated row of the display-name roster.
type RosterEntry struct {
	CharacterID int64  `json:"characterId"`
	BattleTag   string `json:"battleTag"`
	Name        string `json:"name,omitempty"`
}

// SnapshotInfo describes a persisted baseline without its payload.
type SnapshotInfo struct {
	ID        string        `json:"id"`
	Players   int           `json:"players"`
	CreatedAt time.Time     `json:"createdAt"`
	Age       time.Duration `json:"age"`
}

// Season is one upstream ladder season.
type Season struct {
	BattlenetID int    `json:"battlenetId"`
	Region      string `json:"region"`
	Year        int    `json:"year"`
	Number      int    `json:"number"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
}

// FallbackName derives a display name from a battle-tag, e.g. "Serral#1234"
// becomes "Serral".
func FallbackName(battleTag string) string {
	if i := strings.IndexByte(battleTag, '#'); i > 0 {
		return battleTag[:i]
	}
	return battleTag
}
