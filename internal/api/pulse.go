package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sc2-ladder-tracker/internal/config"
	"sc2-ladder-tracker/internal/constants"
	"sc2-ladder-tracker/internal/domain"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// PulseClient talks to the sc2pulse ladder API. Transient failures (network
// errors, 5xx) are retried with backoff up to a bounded attempt count; 4xx
// responses are returned to the caller as-is.
type PulseClient struct {
	baseURL     string
	client      *fasthttp.Client
	maxAttempts int
	logger      zerolog.Logger
}

// StatusError is an upstream non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.Code, e.URL)
}

// Transient reports whether the error is worth retrying: network failures and
// server-side (5xx) statuses.
func Transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// fasthttp surfaces its own dial/timeout errors
	return errors.Is(err, fasthttp.ErrTimeout) ||
		errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, fasthttp.ErrConnectionClosed)
}

func NewPulseClient(cfg *config.Config, logger zerolog.Logger) *PulseClient {
	return &PulseClient{
		baseURL: strings.TrimRight(cfg.PulseBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         cfg.UpstreamTimeout,
			WriteTimeout:        cfg.UpstreamTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		maxAttempts: cfg.UpstreamMaxAttempts,
		logger:      logger,
	}
}

// ListSeasons returns all known ladder seasons, most recent first.
func (c *PulseClient) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	u := fmt.Sprintf("%s/season/list/all", c.baseURL)
	seasons, err := doRequest[[]domain.Season](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *seasons, nil
}

// TeamsByCharacters returns 1v1 ladder team records for the given character
// ids in one season. Callers are expected to chunk the id list; this method
// issues a single request.
func (c *PulseClient) TeamsByCharacters(ctx context.Context, season int, characterIDs []int64) ([]LadderTeam, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(characterIDs))
	for i, id := range characterIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	u := fmt.Sprintf("%s/group/team?season=%d&queue=LOTV_1V1&characterId=%s",
		c.baseURL, season, strings.Join(ids, ","))
	teams, err := doRequest[[]LadderTeam](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *teams, nil
}

// SearchCharacters runs the upstream free-text player search.
func (c *PulseClient) SearchCharacters(ctx context.Context, term string) ([]CharacterSearchResult, error) {
	u := fmt.Sprintf("%s/character/search?term=%s", c.baseURL, url.QueryEscape(term))
	results, err := doRequest[[]CharacterSearchResult](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *results, nil
}

func doRequest[T any](ctx context.Context, client *PulseClient, u string) (*T, error) {
	attempts := client.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var result T
	err := retry.Do(
		func() error {
			body, err := client.fetch(ctx, u)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &result)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(constants.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Transient),
		retry.OnRetry(func(n uint, err error) {
			client.logger.Warn().Err(err).Uint("attempt", n+1).Str("url", u).Msg("retrying upstream request")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *PulseClient) fetch(ctx context.Context, u string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), URL: u}
	}

	// resp body is pooled, copy before release
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// LadderTeam is one per-race/queue ladder standing as returned by the
// team-group endpoint. Optional fields stay at their zero value when the
// upstream omits them.
type LadderTeam struct {
	Rating     int          `json:"rating"`
	Wins       int          `json:"wins"`
	Losses     int          `json:"losses"`
	Ties       int          `json:"ties"`
	LeagueType int          `json:"leagueType"`
	GlobalRank int          `json:"globalRank"`
	RegionRank int          `json:"regionRank"`
	LeagueRank int          `json:"leagueRank"`
	LastPlayed string       `json:"lastPlayed"`
	Members    []TeamMember `json:"members"`
}

// TeamMember carries the player-account reference and the per-race game
// breakdown. Races absent from RaceGames mean zero games.
type TeamMember struct {
	Account   *domain.Account   `json:"account,omitempty"`
	Character *domain.Character `json:"character,omitempty"`
	Clan      string            `json:"clanTag,omitempty"`
	RaceGames map[string]int    `json:"raceGames,omitempty"`
}

// BattleTag returns the first non-empty battle-tag among the team's members,
// or "" when the record carries no identifiable account.
func (t *LadderTeam) BattleTag() string {
	for _, m := range t.Members {
		if m.Account != nil && m.Account.BattleTag != "" {
			return m.Account.BattleTag
		}
	}
	return ""
}

// CharacterSearchResult is one raw match from the upstream player search,
// passed through to clients unconsolidated.
type CharacterSearchResult struct {
	LeagueMax   int               `json:"leagueMax"`
	RatingMax   int               `json:"ratingMax"`
	TotalGames  int               `json:"totalGamesPlayed"`
	CurrentStat *LadderTeam       `json:"currentStats,omitempty"`
	Members     []TeamMember      `json:"members,omitempty"`
	Character   *domain.Character `json:"character,omitempty"`
	Account     *domain.Account   `json:"account,omitempty"`
}
