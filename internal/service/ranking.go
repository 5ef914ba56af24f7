package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"sc2-ladder-tracker/internal/api"
	"sc2-ladder-tracker/internal/cache"
	"sc2-ladder-tracker/internal/config"
	"sc2-ladder-tracker/internal/constants"
	"sc2-ladder-tracker/internal/domain"
	"sc2-ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoSeason is returned when the upstream reports no ladder seasons.
var ErrNoSeason = errors.New("no current season available")

const (
	rankingKey  = "ranking"
	seasonKey   = "season:current"
	baselineKey = "baseline"
)

// LadderAPI is the upstream ranking API surface the service consumes.
type LadderAPI interface {
	ListSeasons(ctx context.Context) ([]domain.Season, error)
	TeamsByCharacters(ctx context.Context, season int, characterIDs []int64) ([]api.LadderTeam, error)
	SearchCharacters(ctx context.Context, term string) ([]api.CharacterSearchResult, error)
}

// RosterStore loads the curated display-name roster.
type RosterStore interface {
	ListAll(ctx context.Context) ([]domain.RosterEntry, error)
}

// SnapshotStore persists ranking baselines.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.RankingSnapshot) (string, error)
	List(ctx context.Context) ([]domain.SnapshotInfo, error)
	Load(ctx context.Context, id string) (domain.RankingSnapshot, error)
	LoadLatest(ctx context.Context) (domain.RankingSnapshot, error)
}

// RankingService runs the fetch-consolidate-classify-sort pipeline behind a
// short-TTL cache and a singleflight gate: concurrent callers of GetRanking
// share one in-flight computation per cache key, so at most one upstream
// fetch runs at a time no matter how many clients poll.
type RankingService struct {
	api       LadderAPI
	roster    RosterStore
	snapshots SnapshotStore
	activity  *ActivityClassifier
	cfg       *config.Config
	logger    zerolog.Logger

	live     *cache.Store[domain.RankingSnapshot]
	baseline *cache.Store[domain.RankingSnapshot]
	seasons  *cache.Store[domain.Season]
	group    singleflight.Group

	// bumped on every cache clear so a flight that started before the clear
	// cannot re-populate the live cache with pre-clear data
	generation   atomic.Int64
	lastComputed atomic.Pointer[time.Time]
}

func NewRankingService(
	pulse *api.PulseClient,
	roster *repository.RosterRepository,
	snapshots *repository.SnapshotRepository,
	activity *ActivityClassifier,
	cfg *config.Config,
	logger zerolog.Logger,
) *RankingService {
	return newRankingService(pulse, roster, snapshots, activity, cfg, logger)
}

// newRankingService accepts the narrow interfaces so tests can inject fakes.
func newRankingService(
	ladder LadderAPI,
	roster RosterStore,
	snapshots SnapshotStore,
	activity *ActivityClassifier,
	cfg *config.Config,
	logger zerolog.Logger,
) *RankingService {
	return &RankingService{
		api:       ladder,
		roster:    roster,
		snapshots: snapshots,
		activity:  activity,
		cfg:       cfg,
		logger:    logger,
		live:      cache.New[domain.RankingSnapshot](),
		baseline:  cache.New[domain.RankingSnapshot](),
		seasons:   cache.New[domain.Season](),
	}
}

// GetRanking returns the current ranking snapshot. Cache hits return
// immediately; on a miss, concurrent callers join a single in-flight
// computation and receive the same result. Pipeline failures resolve as an
// empty snapshot, never as an error.
func (s *RankingService) GetRanking(ctx context.Context) domain.RankingSnapshot {
	if snap, ok := s.live.Get(rankingKey); ok {
		s.logger.Debug().Msg("ranking cache hit")
		return snap
	}

	v, _, shared := s.group.Do(rankingKey, func() (any, error) {
		// a caller that lost the race to a just-finished flight can still
		// find a fresh entry here
		if snap, ok := s.live.Get(rankingKey); ok {
			return snap, nil
		}

		// the computation outlives any single caller's request context
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RequestTimeout)
		defer cancel()

		gen := s.generation.Load()
		snap := s.computeRanking(cctx)
		// a clear during the flight invalidates its result for caching
		if s.generation.Load() == gen {
			s.live.Set(rankingKey, snap, s.cfg.RankingCacheTTL)
		}
		created := snap.CreatedAt
		s.lastComputed.Store(&created)
		return snap, nil
	})

	if shared {
		s.logger.Debug().Msg("joined in-flight ranking computation")
	}
	return v.(domain.RankingSnapshot)
}

// computeRanking runs the full pipeline. Every failure path degrades to an
// empty snapshot with structured logging; waiters must never see an error.
func (s *RankingService) computeRanking(ctx context.Context) domain.RankingSnapshot {
	start := time.Now()
	empty := domain.RankingSnapshot{Players: []domain.RankedPlayer{}, CreatedAt: start}

	roster, err := s.loadRoster(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("ranking computation failed: roster load")
		return empty
	}
	if len(roster) == 0 {
		s.logger.Warn().Msg("roster is empty, ranking will be empty")
		return empty
	}

	season, err := s.CurrentSeason(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("ranking computation failed: season lookup")
		return empty
	}

	ids := make([]int64, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.CharacterID)
	}

	teams, err := s.TeamsForCharacters(ctx, season.BattlenetID, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("season", season.BattlenetID).Msg("ranking computation failed: team fetch")
		return empty
	}

	consolidated, order, droppedRecords := Consolidate(teams)
	if droppedRecords > 0 {
		s.logger.Warn().Int("dropped", droppedRecords).Msg("team records without battle tag dropped")
	}

	resolver := NewNameResolver(roster)
	players := make([]domain.RankedPlayer, 0, len(consolidated))
	filtered := 0
	for _, tag := range order {
		player, ok := BuildRankedPlayer(consolidated[tag], resolver, s.activity)
		if !ok {
			filtered++
			continue
		}
		players = append(players, player)
	}
	if filtered > 0 {
		s.logger.Debug().Int("filtered", filtered).Msg("players without race data excluded")
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Rating > players[j].Rating
	})

	snap := domain.RankingSnapshot{Players: players, CreatedAt: start}

	if base, ok := s.activeBaseline(ctx); ok {
		stats := ApplyPositionChanges(snap.Players, base.Players)
		snap.Stats = &stats
	}

	s.logger.Info().
		Int("players", len(players)).
		Int("teams", len(teams)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("ranking computed")
	return snap
}

func (s *RankingService) loadRoster(ctx context.Context) ([]domain.RosterEntry, error) {
	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.roster.ListAll(dctx)
}

// CurrentSeason resolves the most recent upstream season, cached on an
// hourly scope.
func (s *RankingService) CurrentSeason(ctx context.Context) (domain.Season, error) {
	if season, ok := s.seasons.Get(seasonKey); ok {
		return season, nil
	}

	actx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	seasons, err := s.api.ListSeasons(actx)
	if err != nil {
		return domain.Season{}, fmt.Errorf("failed to list seasons: %w", err)
	}
	if len(seasons) == 0 {
		return domain.Season{}, ErrNoSeason
	}

	current := seasons[0]
	for _, season := range seasons[1:] {
		if season.BattlenetID > current.BattlenetID {
			current = season
		}
	}

	s.seasons.Set(seasonKey, current, s.cfg.SeasonCacheTTL)
	s.logger.Debug().Int("season", current.BattlenetID).Msg("current season resolved")
	return current, nil
}

// TeamsForCharacters fetches ladder team records for the given character
// ids, chunked to respect upstream request-size limits, with bounded
// concurrency.
func (s *RankingService) TeamsForCharacters(ctx context.Context, season int, characterIDs []int64) ([]api.LadderTeam, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}

	chunks := chunkIDs(characterIDs, s.cfg.TeamChunkSize)
	results := make([][]api.LadderTeam, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, s.cfg.UpstreamTimeout)
			defer cancel()

			teams, err := s.api.TeamsByCharacters(actx, season, chunk)
			if err != nil {
				return fmt.Errorf("failed to fetch teams chunk %d: %w", i, err)
			}
			results[i] = teams
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var teams []api.LadderTeam
	for _, r := range results {
		teams = append(teams, r...)
	}
	return teams, nil
}

// SearchPlayers passes a free-text search through to the upstream. Unlike
// the ranking pipeline there is no sane empty fallback here, so errors
// surface to the caller.
func (s *RankingService) SearchPlayers(ctx context.Context, term string) ([]api.CharacterSearchResult, error) {
	actx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	results, err := s.api.SearchCharacters(actx, term)
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("player search failed")
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	return results, nil
}

// activeBaseline returns the comparison snapshot for position changes: the
// cached baseline if fresh, otherwise the latest persisted one.
func (s *RankingService) activeBaseline(ctx context.Context) (domain.RankingSnapshot, bool) {
	if base, ok := s.baseline.Get(baselineKey); ok {
		return base, true
	}

	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	base, err := s.snapshots.LoadLatest(dctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			s.logger.Warn().Err(err).Msg("failed to load baseline snapshot")
		}
		return domain.RankingSnapshot{}, false
	}
	s.baseline.Set(baselineKey, base, s.cfg.BaselineCacheTTL)
	return base, true
}

// SaveBaseline persists the current ranking as the new comparison baseline
// and installs it in the baseline cache.
func (s *RankingService) SaveBaseline(ctx context.Context) (string, error) {
	snap := s.GetRanking(ctx)
	if len(snap.Players) == 0 {
		return "", errors.New("refusing to save empty ranking as baseline")
	}

	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	id, err := s.snapshots.Save(dctx, snap)
	if err != nil {
		return "", fmt.Errorf("failed to save baseline: %w", err)
	}
	s.baseline.Set(baselineKey, snap, s.cfg.BaselineCacheTTL)
	return id, nil
}

// ListBaselines returns persisted baseline metadata, newest first.
func (s *RankingService) ListBaselines(ctx context.Context) ([]domain.SnapshotInfo, error) {
	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.snapshots.List(dctx)
}

// RestoreBaseline installs a persisted baseline by identifier as the active
// comparison point and drops the live cache so the next ranking is diffed
// against it.
func (s *RankingService) RestoreBaseline(ctx context.Context, id string) error {
	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	base, err := s.snapshots.Load(dctx, id)
	if err != nil {
		return fmt.Errorf("failed to restore baseline %s: %w", id, err)
	}

	s.baseline.Set(baselineKey, base, s.cfg.BaselineCacheTTL)
	s.generation.Add(1)
	s.live.Delete(rankingKey)
	s.group.Forget(rankingKey)
	s.logger.Info().Str("id", id).Int("players", len(base.Players)).Msg("baseline restored")
	return nil
}

// ChangesAgainst diffs the current ranking against a stored baseline by
// identifier, returning per-player movement and aggregate stats without
// altering the active baseline.
func (s *RankingService) ChangesAgainst(ctx context.Context, id string) ([]domain.PositionChange, domain.ChangeStats, error) {
	dctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	base, err := s.snapshots.Load(dctx, id)
	if err != nil {
		return nil, domain.ChangeStats{}, fmt.Errorf("failed to load baseline %s: %w", id, err)
	}

	current := s.GetRanking(ctx)
	changes, stats := PositionChanges(current.Players, base.Players)
	return changes, stats, nil
}

// ClearCaches resets the ranking, season, and baseline caches along with the
// in-flight marker. The next GetRanking call always triggers a fresh
// upstream fetch; callers already attached to an old flight still get its
// result.
func (s *RankingService) ClearCaches() {
	s.generation.Add(1)
	s.live.Clear()
	s.seasons.Clear()
	s.baseline.Clear()
	s.group.Forget(rankingKey)
	s.logger.Info().Msg("caches cleared")
}

// Status reports cache counters for the status endpoint.
type Status struct {
	RankingHits    int64      `json:"rankingHits"`
	RankingMisses  int64      `json:"rankingMisses"`
	SeasonHits     int64      `json:"seasonHits"`
	SeasonMisses   int64      `json:"seasonMisses"`
	LastComputedAt *time.Time `json:"lastComputedAt,omitempty"`
}

func (s *RankingService) Status() Status {
	rh, rm := s.live.Stats()
	sh, sm := s.seasons.Stats()
	return Status{
		RankingHits:    rh,
		RankingMisses:  rm,
		SeasonHits:     sh,
		SeasonMisses:   sm,
		LastComputedAt: s.lastComputed.Load(),
	}
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		return [][]int64{ids}
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
