package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sc2-ladder-tracker/internal/config"
	"sc2-ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadderTeamParsing(t *testing.T) {
	jsonData := `{
    "rating": 3500,
    "wins": 20,
    "losses": 15,
    "ties": 0,
    "leagueType": 6,
    "globalRank": 12,
    "regionRank": 3,
    "leagueRank": 1,
    "lastPlayed": "2024-01-15T10:00:00Z",
    "members": [
        {
            "account": {"id": 7, "battleTag": "A#1"},
            "character": {"id": 99, "name": "Alpha#1"},
            "clanTag": "LIQ",
            "raceGames": {"TERRAN": 30, "PROTOSS": 5}
        }
    ]
}`

	var team LadderTeam
	err := json.Unmarshal([]byte(jsonData), &team)
	require.NoError(t, err)

	assert.Equal(t, 3500, team.Rating)
	assert.Equal(t, 20, team.Wins)
	assert.Equal(t, 15, team.Losses)
	assert.Equal(t, 6, team.LeagueType)
	assert.Equal(t, "2024-01-15T10:00:00Z", team.LastPlayed)

	require.Len(t, team.Members, 1)
	m := team.Members[0]
	require.NotNil(t, m.Account)
	assert.Equal(t, "A#1", m.Account.BattleTag)
	assert.Equal(t, int64(7), m.Account.ID)
	assert.Equal(t, "LIQ", m.Clan)
	assert.Equal(t, map[string]int{"TERRAN": 30, "PROTOSS": 5}, m.RaceGames)
}

func TestLadderTeamParsingOptionalFields(t *testing.T) {
	// upstream omits account and race breakdown for some records
	var team LadderTeam
	err := json.Unmarshal([]byte(`{"rating": 2800, "members": [{}]}`), &team)
	require.NoError(t, err)

	assert.Equal(t, 2800, team.Rating)
	require.Len(t, team.Members, 1)
	assert.Nil(t, team.Members[0].Account)
	assert.Nil(t, team.Members[0].RaceGames)
	assert.Equal(t, "", team.BattleTag())
}

func TestLadderTeamBattleTag(t *testing.T) {
	tests := []struct {
		name string
		team LadderTeam
		want string
	}{
		{"no members", LadderTeam{}, ""},
		{"member without account", LadderTeam{Members: []TeamMember{{}}}, ""},
		{
			"first tagged member wins",
			LadderTeam{Members: []TeamMember{
				{Account: &domain.Account{}},
				{Account: &domain.Account{BattleTag: "B#2"}},
				{Account: &domain.Account{BattleTag: "C#3"}},
			}},
			"B#2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.team.BattleTag())
		})
	}
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&StatusError{Code: 500, URL: "u"}))
	assert.True(t, Transient(&StatusError{Code: 503, URL: "u"}))
	assert.False(t, Transient(&StatusError{Code: 404, URL: "u"}))
	assert.False(t, Transient(&StatusError{Code: 400, URL: "u"}))
	assert.False(t, Transient(errors.New("json: cannot unmarshal")))
}

func testClient(t *testing.T, handler http.Handler, attempts int) *PulseClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPulseClient(&config.Config{
		PulseBaseURL:        srv.URL,
		UpstreamTimeout:     2 * time.Second,
		UpstreamMaxAttempts: attempts,
	}, zerolog.Nop())
}

func TestListSeasonsRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"battlenetId": 58, "region": "EU"}]`))
	}), 3)

	seasons, err := client.ListSeasons(context.Background())
	require.NoError(t, err)
	require.Len(t, seasons, 1)
	assert.Equal(t, 58, seasons[0].BattlenetID)
	assert.Equal(t, int32(2), requests.Load())
}

func TestListSeasonsDoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), 3)

	_, err := client.ListSeasons(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), requests.Load())
}

func TestListSeasonsExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), 3)

	_, err := client.ListSeasons(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), requests.Load())
}

func TestSeasonParsing(t *testing.T) {
	jsonData := `[
	    {"battlenetId": 57, "region": "EU", "year": 2023, "number": 4},
	    {"battlenetId": 58, "region": "EU", "year": 2024, "number": 1}
	]`

	var seasons []domain.Season
	err := json.Unmarshal([]byte(jsonData), &seasons)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, 58, seasons[1].BattlenetID)
	assert.Equal(t, 2024, seasons[1].Year)
}
