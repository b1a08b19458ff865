package profile

import (
	"encoding/json"
	"net/http"

	"github.com/clickmoment/clickmoment/internal/auth"
	"github.com/clickmoment/clickmoment/internal/httputil"
	"github.com/clickmoment/clickmoment/internal/validate"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	p := h.store.Get(r.Context(), userID)
	if p == nil {
		httputil.WriteError(w, http.StatusNotFound, "profile not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	checks := []string{
		validate.Stage(fields.Stage),
		validate.Niche(fields.ContentNiche),
		validate.GrowthGoal(fields.GrowthGoal),
	}
	for _, msg := range checks {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	p, err := h.store.Save(r.Context(), userID, fields)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type limitsResponse struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Limits reports the server-side usage verdict plus the remaining count.
// Remaining is -1 for testers, who are unlimited. Clients act on the
// verdict and never recompute it.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	allowed, err := h.store.CanAnalyze(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check analysis allowance")
		return
	}
	remaining, err := h.store.Remaining(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch remaining analyses")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, limitsResponse{Allowed: allowed, Remaining: remaining})
}

// RecordUsage counts one consumed analysis for the user.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if err := h.store.IncrementAnalysisCount(r.Context(), userID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
