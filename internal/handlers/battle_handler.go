package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mentoro/arena/internal/battle"
	"github.com/mentoro/arena/internal/middleware"
	"github.com/mentoro/arena/pkg/errors"
	"github.com/mentoro/arena/pkg/logger"
)

type submitRequest struct {
	Code string `json:"code"`
}

// CreateBattle handles POST /api/battles
func (h *HandlerManager) CreateBattle(w http.ResponseWriter, r *http.Request) {
	var req battle.CreateMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, errors.Wrap(err, errors.ErrCodeValidation, err.Error()))
		return
	}

	userID := middleware.UserID(r.Context())
	h.ensureProfile(r)

	view, err := h.Battles.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"match_id": view.ID, "status": view.Status})
}

// ListActiveBattles handles GET /api/battles/active
func (h *HandlerManager) ListActiveBattles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{"battles": h.Battles.ListActive()})
}

// GetBattle handles GET /api/battles/{matchID}
func (h *HandlerManager) GetBattle(w http.ResponseWriter, r *http.Request) {
	view, err := h.Battles.Get(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// JoinBattle handles POST /api/battles/{matchID}/join
func (h *HandlerManager) JoinBattle(w http.ResponseWriter, r *http.Request) {
	h.ensureProfile(r)

	result, err := h.Battles.Join(r.Context(), chi.URLParam(r, "matchID"), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"status": "joined", "match_status": result.MatchStatus})
}

// SubmitBattle handles POST /api/battles/{matchID}/submit
func (h *HandlerManager) SubmitBattle(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, errors.Wrap(err, errors.ErrCodeValidation, err.Error()))
		return
	}
	if req.Code == "" {
		writeError(w, r, errors.New(errors.ErrCodeValidation, "code is required"))
		return
	}

	result, err := h.Battles.Submit(r.Context(), chi.URLParam(r, "matchID"), middleware.UserID(r.Context()), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HandlerManager) ensureProfile(r *http.Request) {
	if h.Profiles == nil {
		return
	}
	userID := middleware.UserID(r.Context())
	if err := h.Profiles.EnsureProfile(r.Context(), userID, middleware.Username(r.Context())); err != nil {
		logger.Warn("Failed to ensure profile", "user_id", userID, "error", err)
	}
}
