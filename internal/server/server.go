// Package server exposes the ranking pipeline over a small JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sc2-ladder-tracker/internal/api"
	"sc2-ladder-tracker/internal/domain"
	"sc2-ladder-tracker/internal/repository"
	"sc2-ladder-tracker/internal/service"

	"github.com/rs/zerolog"
)

type Server struct {
	ranking *service.RankingService
	roster  *repository.RosterRepository
	logger  zerolog.Logger
}

func New(ranking *service.RankingService, roster *repository.RosterRepository, logger zerolog.Logger) *Server {
	return &Server{ranking: ranking, roster: roster, logger: logger}
}

// Routes registers all handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/season", s.handleSeason)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/admin/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/admin/snapshot", s.handleSaveSnapshot)
	mux.HandleFunc("GET /api/admin/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/admin/snapshots/{id}/restore", s.handleRestoreSnapshot)
	mux.HandleFunc("GET /api/admin/snapshots/{id}/changes", s.handleSnapshotChanges)
	mux.HandleFunc("POST /api/admin/roster", s.handleUpsertRoster)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	snap := s.ranking.GetRanking(r.Context())
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "term is required")
		return
	}

	results, err := s.ranking.SearchPlayers(r.Context(), term)
	if err != nil {
		writeError(w, http.StatusBadGateway, "player search failed")
		return
	}
	if results == nil {
		results = []api.CharacterSearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.ranking.CurrentSeason(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoSeason) {
			writeError(w, http.StatusNotFound, "no season available")
			return
		}
		writeError(w, http.StatusBadGateway, "season lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, season)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ranking.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.ranking.ClearCaches()
	writeJSON(w, http.StatusOK, map[string]string{"status": "caches cleared"})
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := s.ranking.SaveBaseline(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save baseline snapshot")
		writeError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := s.ranking.ListBaselines(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list snapshots")
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if infos == nil {
		infos = []domain.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "snapshot id is required")
		return
	}

	if err := s.ranking.RestoreBaseline(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error().Err(err).Str("id", id).Msg("failed to restore snapshot")
		writeError(w, http.StatusInternalServerError, "failed to restore snapshot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "baseline restored", "id": id})
}

func (s *Server) handleSnapshotChanges(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "snapshot id is required")
		return
	}

	changes, stats, err := s.ranking.ChangesAgainst(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error().Err(err).Str("id", id).Msg("failed to compute position changes")
		writeError(w, http.StatusInternalServerError, "failed to compute position changes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes, "stats": stats})
}

func (s *Server) handleUpsertRoster(w http.ResponseWriter, r *http.Request) {
	var entries []domain.RosterEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid roster payload")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "roster payload is empty")
		return
	}

	if err := s.roster.UpsertBatch(r.Context(), entries); err != nil {
		s.logger.Error().Err(err).Msg("failed to upsert roster")
		writeError(w, http.StatusInternalServerError, "failed to update roster")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(entries)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
