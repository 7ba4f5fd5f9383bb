package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
)

// PlanHandler handles plan endpoints.
type PlanHandler struct {
	*Handler
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(base *Handler) *PlanHandler {
	return &PlanHandler{Handler: base}
}

// RegisterRoutes registers plan routes.
func (h *PlanHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/plans", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/{role}", h.HandleCurrent)
		r.Get("/{role}/versions", h.HandleVersions)
	})
}

// HandleCurrent returns the caller's current plan for the role: the active
// revision, the generated base plan, or an explicit no-plan state.
func (h *PlanHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	role, err := roleParam(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.plans.Current(r.Context(), userID, role)
	if err != nil {
		slog.Error("Failed to load current plan", "error", err, "user_id", userID, "agent_role", role)
		Error(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	JSON(w, http.StatusOK, current)
}

// HandleVersions returns the revision history for the role, newest first.
// Listings carry metadata only; plan text comes from the current endpoint.
func (h *PlanHandler) HandleVersions(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	role, err := roleParam(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	versions, err := h.plans.Versions(r.Context(), userID, role)
	if err != nil {
		slog.Error("Failed to load plan versions", "error", err, "user_id", userID, "agent_role", role)
		Error(w, http.StatusInternalServerError, "failed to load plan versions")
		return
	}

	out := make([]map[string]interface{}, 0, len(versions))
	for _, v := range versions {
		out = append(out, map[string]interface{}{
			"version":              v.Version,
			"modification_summary": v.ModificationSummary,
			"is_current":           v.IsCurrent,
			"created_at":           v.CreatedAt,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"versions": out,
		"count":    len(out),
	})
}

type generateRequest struct {
	Roles []string `json:"roles,omitempty"`
}

// HandleGenerate produces base plans from the caller's profile, for the
// requested roles or all plan roles when none are named.
func (h *PlanHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roles := domain.PlanRoles()
	if len(req.Roles) > 0 {
		roles = roles[:0]
		for _, raw := range req.Roles {
			role, err := domain.ParseRole(raw)
			if err != nil {
				Error(w, http.StatusBadRequest, err.Error())
				return
			}
			roles = append(roles, role)
		}
	}

	generated := map[string]interface{}{}
	var failures []string
	for _, role := range roles {
		plan, err := h.generator.Generate(r.Context(), userID, role)
		if err != nil {
			slog.Error("Plan generation failed", "error", err, "user_id", userID, "agent_role", role)
			failures = append(failures, string(role))
			continue
		}
		generated[string(role)] = map[string]interface{}{
			"plan_id":    plan.ID,
			"created_at": plan.CreatedAt,
		}
	}

	if len(generated) == 0 {
		Error(w, http.StatusInternalServerError, "plan generation failed")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"generated": generated,
		"failed":    failures,
	})
}
