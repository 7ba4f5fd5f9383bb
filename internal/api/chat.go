package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
)

const defaultMaxRequestBodySize = 1 << 20

// ChatRequest is the POST /api/chat body. The same shape travels over the
// WebSocket endpoint as message frames.
type ChatRequest struct {
	Role     string `json:"role"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ChatHandler handles conversational endpoints.
type ChatHandler struct {
	*Handler
	limiter       *RateLimiter
	maxMessageLen int
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler, limiter *RateLimiter, maxMessageLen int) *ChatHandler {
	return &ChatHandler{Handler: base, limiter: limiter, maxMessageLen: maxMessageLen}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/", h.HandleChat)
		r.Get("/{role}/history", h.HandleHistory)
		r.Get("/{role}/analytics", h.HandleAnalytics)
		r.Delete("/{role}", h.HandleClear)
	})
}

// HandleChat runs one conversational exchange.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == 0 {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if h.maxMessageLen > 0 && utf8.RuneCountInString(req.Message) > h.maxMessageLen {
		Error(w, http.StatusBadRequest, "message too long")
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}

	slog.Info("Chat request",
		"user_id", userID,
		"agent_role", role,
		"thread_id", req.ThreadID,
		"message_length", len(req.Message))

	result := h.chat.Respond(r.Context(), userID, role, req.Message, req.ThreadID)
	status := http.StatusOK
	if !result.Success {
		// Input was validated above; a failure here is infrastructure.
		status = http.StatusInternalServerError
	}
	JSON(w, status, result)
}

// HandleHistory returns recent conversation pairs for the caller and role.
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	role, err := roleParam(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	pairs, err := h.chat.History(r.Context(), userID, role, limit)
	if err != nil {
		slog.Error("Failed to load history", "error", err, "user_id", userID, "agent_role", role)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if pairs == nil {
		pairs = []domain.HistoryPair{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"history": pairs,
		"count":   len(pairs),
	})
}

// HandleAnalytics returns session statistics for the caller and role.
func (h *ChatHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	role, err := roleParam(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	analytics, err := h.chat.Analytics(r.Context(), userID, role)
	if err != nil {
		slog.Error("Failed to load analytics", "error", err, "user_id", userID, "agent_role", role)
		Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	if analytics == nil {
		Error(w, http.StatusNotFound, "no conversation found")
		return
	}
	JSON(w, http.StatusOK, analytics)
}

// HandleClear resets the conversation and returns plans to their base
// version.
func (h *ChatHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	role, err := roleParam(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.chat.Clear(r.Context(), userID, role); err != nil {
		slog.Error("Failed to clear conversation", "error", err, "user_id", userID, "agent_role", role)
		Error(w, http.StatusInternalServerError, "failed to clear conversation")
		return
	}

	slog.Info("Conversation cleared", "user_id", userID, "agent_role", role)
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
