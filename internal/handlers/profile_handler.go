package handlers

import (
	"net/http"
	"strconv"

	"github.com/mentoro/arena/internal/middleware"
	"github.com/mentoro/arena/internal/models"
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
	recentXPEntries        = 10
)

type profileResponse struct {
	*models.Profile
	WinRate       int            `json:"win_rate"`
	XPToNextLevel int64          `json:"xp_to_next_level"`
	RecentXP      []models.XPLog `json:"recent_xp"`
}

// GetMyProfile handles GET /api/profiles/me
func (h *HandlerManager) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	profile, err := h.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := h.XP.GetHistory(r.Context(), userID, recentXPEntries)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Profile:       profile,
		WinRate:       profile.WinRate(),
		XPToNextLevel: profile.XPToNextLevel(),
		RecentXP:      history,
	})
}

// Leaderboard handles GET /api/leaderboard?limit=N
func (h *HandlerManager) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxLeaderboardSize)
		}
	}

	profiles, err := h.Profiles.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": profiles})
}
