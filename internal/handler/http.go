package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/league-ledger/internal/domain"
	"github.com/league-ledger/internal/service"
	"github.com/league-ledger/internal/websocket"
)

// Handler provides HTTP handlers for the ledger API
type Handler struct {
	competitions  *service.CompetitionService
	voting        *service.VotingService
	registrations *service.RegistrationService
	ingest        *service.IngestService
	hub           *websocket.Hub
	logger        *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	competitions *service.CompetitionService,
	voting *service.VotingService,
	registrations *service.RegistrationService,
	ingest *service.IngestService,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		competitions:  competitions,
		voting:        voting,
		registrations: registrations,
		ingest:        ingest,
		hub:           hub,
		logger:        logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(IdentityMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// Live ticker endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", h.ListCompetitions)

			r.Route("/{competitionID}", func(r chi.Router) {
				r.Get("/standings", h.GetStandings)
				r.Get("/scorers", h.GetTopScorers)
				r.Get("/discipline", h.GetDisciplinaryRanking)
				r.Get("/fairplay", h.GetFairPlayRanking)
				r.Post("/registrations", h.RegisterPlayer)
			})
		})

		r.Get("/players/{playerID}/career", h.GetCareerTotals)

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.GetMatch)
			r.Get("/events", h.GetMatchEvents)
			r.Post("/voting/open", h.OpenVoting)
			r.Post("/voting/close", h.CloseVoting)
			r.Get("/voting/status", h.GetVotingStatus)
			r.Get("/voting/results", h.GetVoteResults)
			r.Post("/votes", h.CastVote)
		})

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-User-ID, X-Device-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeDomainError maps a typed domain error to its HTTP status. A rejected
// vote tells the caller why: already voted, voting closed and ineligible
// candidate are distinct UX states, not one generic failure.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrDuplicateVote):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrConflict):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrVotingClosed):
		h.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrIneligibleCandidate):
		h.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidEventType):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles ticker WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns ticker connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// ListCompetitions returns all competitions
func (h *Handler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.competitions.ListCompetitions(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, competitions)
}

// GetStandings returns the computed table for a competition
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if competitionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	table, err := h.competitions.Standings(r.Context(), competitionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, table)
}

// GetTopScorers returns the top-scorers ranking for a competition
func (h *Handler) GetTopScorers(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if competitionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.competitions.TopScorers(r.Context(), competitionID, queryLimit(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetDisciplinaryRanking returns the player disciplinary ranking
func (h *Handler) GetDisciplinaryRanking(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if competitionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.competitions.DisciplinaryRanking(r.Context(), competitionID, queryLimit(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetFairPlayRanking returns the team fair-play ranking
func (h *Handler) GetFairPlayRanking(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if competitionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.competitions.FairPlayRanking(r.Context(), competitionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, entries)
}

// GetCareerTotals returns a player's career totals across all competitions
func (h *Handler) GetCareerTotals(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	totals, err := h.competitions.CareerTotals(r.Context(), playerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, totals)
}

// RegisterPlayer registers a player to a team within a competition
func (h *Handler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if competitionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	var req domain.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	reg, err := h.registrations.RegisterPlayer(r.Context(), competitionID, req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    reg,
	})
}

// GetMatch returns a single match record
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	match, err := h.competitions.Match(r.Context(), matchID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, match)
}

// GetMatchEvents returns the recorded event log for a match
func (h *Handler) GetMatchEvents(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	events, err := h.ingest.MatchEvents(r.Context(), matchID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, events)
}

// OpenVoting opens the voting window for a match
func (h *Handler) OpenVoting(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	var req domain.OpenVotingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
	}

	if err := h.voting.OpenVoting(r.Context(), matchID, req.Deadline); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "open"})
}

// CloseVoting closes the voting window for a match
func (h *Handler) CloseVoting(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.voting.CloseVoting(r.Context(), matchID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "closed"})
}

// CastVote records one player-of-the-match vote for the calling identity
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	var req domain.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	voter := IdentityFromContext(r.Context())
	if err := h.voting.CastVote(r.Context(), matchID, req.CandidatePlayerID, voter); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]string{"status": "recorded"},
	})
}

// GetVotingStatus returns the voting window state and tally summary
func (h *Handler) GetVotingStatus(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	status, err := h.voting.Status(r.Context(), matchID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, status)
}

// GetVoteResults returns the live per-candidate tally for a match
func (h *Handler) GetVoteResults(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	results, err := h.voting.Results(r.Context(), matchID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, results)
}

func queryLimit(r *http.Request) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return 0
}
