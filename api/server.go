package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/game/service"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
)

// Broadcaster pushes match snapshots to subscribers
type Broadcaster interface {
	BroadcastMatch(match *engine.Match)
	ServeWS(w http.ResponseWriter, r *http.Request, matchID string)
}

// Server represents the REST API server
type Server struct {
	service service.MatchService
	hub     Broadcaster
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(matchService service.MatchService, hub Broadcaster) *Server {
	s := &Server{
		service: matchService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")

	// Match management
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleDeleteMatch).Methods("DELETE")

	// Players
	api.HandleFunc("/players", s.handleListPlayers).Methods("GET")
	api.HandleFunc("/players/{id}", s.handleGetPlayer).Methods("GET")

	// Play
	api.HandleFunc("/matches/{id}/moves", s.handleSubmitMove).Methods("POST")
	api.HandleFunc("/matches/{id}/restart", s.handleRestartMatch).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Operations
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrader needs the raw writer for hijacking
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, map[string]string{"error": message, "kind": kind})
}

// respondServiceError maps a service error to its HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	kind, ok := engine.KindOf(err)
	if !ok {
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	respondError(w, statusForKind(kind), string(kind), err.Error())
}

func statusForKind(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindMatchNotFound, engine.KindPlayerNotFound:
		return http.StatusNotFound
	case engine.KindInvalidMove, engine.KindInvalidPlayerName, engine.KindUnknownPlayer:
		return http.StatusBadRequest
	case engine.KindNotYourTurn, engine.KindDuplicateMove, engine.KindMatchFinished:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) broadcast(match *engine.Match) {
	if s.hub != nil {
		s.hub.BroadcastMatch(match)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "rpsmatch",
		"endpoints": []string{
			"POST /api/matches",
			"GET /api/matches",
			"GET /api/matches/{id}",
			"DELETE /api/matches/{id}",
			"POST /api/matches/{id}/moves",
			"POST /api/matches/{id}/restart",
			"GET /api/players",
			"GET /api/players/{id}",
			"GET /api/rules",
			"GET /ws?match={id}",
		},
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"win_threshold": s.service.Rules().WinThreshold,
		"moves":         engine.Moves,
		"beats": map[string]string{
			string(engine.Rock):     string(engine.Scissors),
			string(engine.Scissors): string(engine.Paper),
			string(engine.Paper):    string(engine.Rock),
		},
		"starter": "player1",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Match Handlers

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player1Name string `json:"player1_name"`
		Player2Name string `json:"player2_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	match, err := s.service.CreateMatch(r.Context(), req.Player1Name, req.Player2Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, match)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	order := query.Get("order") // "asc", "desc" (default)
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if order == "asc" {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(matches) {
			matches = matches[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"total":   total,
		"order":   order,
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.GetMatch(r.Context(), matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	if err := s.service.DeleteMatch(r.Context(), matchID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Match %s deleted", matchID),
	})
}

// Player Handlers

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.service.ListPlayers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if players == nil {
		players = []engine.Player{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(players),
		"players": players,
	})
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.service.GetPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

func (s *Server) handleSubmitMove(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		Move     string `json:"move"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	match, err := s.service.SubmitMove(r.Context(), matchID, req.PlayerID, req.Move)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(match)
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleRestartMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.RestartMatch(r.Context(), matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(match)
	respondJSON(w, http.StatusOK, match)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "match query parameter is required")
		return
	}

	if _, err := s.service.GetMatch(r.Context(), matchID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "WebSocket push is disabled")
		return
	}

	s.hub.ServeWS(w, r, matchID)
}
