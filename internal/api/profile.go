package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
)

// ProfileHandler handles profile intake endpoints.
type ProfileHandler struct {
	*Handler
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(base *Handler) *ProfileHandler {
	return &ProfileHandler{Handler: base}
}

// RegisterRoutes registers profile routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandlePut)
	})
}

// HandleGet returns the caller's intake profile.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}
	JSON(w, http.StatusOK, profile)
}

// HandlePut creates or replaces the caller's intake profile and returns the
// stored result, including derived fields.
func (h *ProfileHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var profile domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The authenticated identity owns the profile regardless of the body.
	profile.UserID = userID

	if err := h.repo.SaveProfile(r.Context(), &profile); err != nil {
		slog.Error("Failed to save profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	saved, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil || saved == nil {
		slog.Warn("Failed to reload saved profile", "error", err, "user_id", userID)
		JSON(w, http.StatusOK, map[string]string{"status": "saved"})
		return
	}
	JSON(w, http.StatusOK, saved)
}
