package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/pulseplan-ai/pulseplan/internal/chat"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
)

// WSHandler serves /ws/chat: ChatRequest frames in, ChatResult frames out.
// Frames are processed sequentially, so a connection has at most one
// exchange in flight.
type WSHandler struct {
	chat           *chat.Service
	limiter        *RateLimiter
	allowedOrigins []string
	isDev          bool
}

// NewWSHandler creates a new WebSocket chat handler.
func NewWSHandler(chatSvc *chat.Service, limiter *RateLimiter, allowedOrigins []string, isDev bool) *WSHandler {
	return &WSHandler{
		chat:           chatSvc,
		limiter:        limiter,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// wsError is the frame sent back for a message that could not be processed.
type wsError struct {
	Error string `json:"error"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == 0 {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}

	connID := uuid.NewString()
	slog.Info("Chat WebSocket connected",
		"user_id", userID,
		"conn_id", connID,
		"ip", identity.IPFromRequest(r))
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID, "conn_id", connID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.writeJSON(ctx, ws, wsError{Error: "invalid message frame"})
			continue
		}
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			h.writeJSON(ctx, ws, wsError{Error: err.Error()})
			continue
		}
		if !h.limiter.Allow(userID) {
			h.writeJSON(ctx, ws, wsError{Error: "rate limit exceeded"})
			continue
		}
		// All turns of one connection share its audit thread by default.
		if req.ThreadID == "" {
			req.ThreadID = connID
		}

		result := h.chat.Respond(ctx, userID, role, req.Message, req.ThreadID)
		if err := h.writeJSON(ctx, ws, result); err != nil {
			slog.Warn("Failed to write chat frame", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WSHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
