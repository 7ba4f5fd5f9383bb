// Package api provides HTTP handlers for the PulsePlan API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulseplan-ai/pulseplan/internal/chat"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/plan"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

// Handler provides common handler utilities and shared dependencies.
type Handler struct {
	repo      store.Repository
	chat      *chat.Service
	plans     *plan.Service
	generator *plan.Generator
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, chatSvc *chat.Service, plans *plan.Service, generator *plan.Generator) *Handler {
	return &Handler{
		repo:      repo,
		chat:      chatSvc,
		plans:     plans,
		generator: generator,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// roleParam parses the {role} URL parameter.
func roleParam(r *http.Request) (domain.Role, error) {
	return domain.ParseRole(chi.URLParam(r, "role"))
}
