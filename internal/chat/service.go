// Package chat orchestrates conversational exchanges: it assembles memory,
// builds the persona prompt, calls the model, classifies plan updates and
// persists the outcome.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/memory"
	"github.com/pulseplan-ai/pulseplan/internal/plan"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

const defaultHistoryLimit = 20

// Config tunes the conversational model call and input validation.
type Config struct {
	Model         string
	Temperature   float64
	Timeout       time.Duration
	MaxMessageLen int
}

// Service coordinates one conversational exchange end to end.
type Service struct {
	repo     store.Repository
	memory   *memory.Manager
	plans    *plan.Service
	llm      llm.Client
	keywords config.DetectorKeywords
	cfg      Config
	audit    *AuditLogger
	logger   *slog.Logger
}

// NewService creates the chat orchestrator. audit may be nil to disable
// conversation audit logging.
func NewService(repo store.Repository, mem *memory.Manager, plans *plan.Service, client llm.Client, keywords config.DetectorKeywords, cfg Config, audit *AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		memory:   mem,
		plans:    plans,
		llm:      client,
		keywords: keywords,
		cfg:      cfg,
		audit:    audit,
		logger:   logger,
	}
}

// Respond handles one user message: validate, assemble context, call the
// model, classify, persist. The returned result is always well-formed; errors
// surface as Success=false with a user-presentable message.
//
// Persistence failure after a successful model call does not fail the result:
// the user still gets their answer, the gap is logged, and plan versioning is
// skipped for that exchange.
func (s *Service) Respond(ctx context.Context, userID int64, role domain.Role, message, threadHint string) domain.ChatResult {
	if !role.Valid() {
		return domain.ChatResult{Error: fmt.Sprintf("unknown role %q", role)}
	}
	if strings.TrimSpace(message) == "" {
		return domain.ChatResult{Error: "message is empty"}
	}
	if s.cfg.MaxMessageLen > 0 && utf8.RuneCountInString(message) > s.cfg.MaxMessageLen {
		return domain.ChatResult{Error: fmt.Sprintf("message exceeds %d characters", s.cfg.MaxMessageLen)}
	}

	cc, err := s.memory.AssembleContext(ctx, userID, role)
	if err != nil {
		s.logger.Error("failed to assemble conversation context",
			"user_id", userID,
			"agent_role", role,
			"error", err)
		return domain.ChatResult{Error: "conversation context unavailable"}
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load profile",
			"user_id", userID,
			"error", err)
	}

	currentPlan, err := s.plans.Current(ctx, userID, role)
	if err != nil {
		s.logger.Warn("failed to load current plan",
			"user_id", userID,
			"agent_role", role,
			"error", err)
		currentPlan = &domain.CurrentPlan{Message: domain.NoPlanMessage}
	}

	systemPrompt := buildSystemPrompt(role, profile, currentPlan, cc)

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	response, err := s.llm.Complete(callCtx, llm.Request{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: "User message: " + message},
		},
	})
	if err != nil {
		s.logger.Error("model call failed",
			"user_id", userID,
			"agent_role", role,
			"error", err)
		return domain.ChatResult{Error: "the assistant is unavailable right now", SessionID: cc.SessionID}
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return domain.ChatResult{Error: "empty response from model", SessionID: cc.SessionID}
	}

	decision := Explain(message, response, cc.RecentMessages, s.keywords)
	s.logger.Debug("plan update detection",
		"user_wants_update", decision.UserWantsUpdate,
		"response_has_plan", decision.ResponseHasPlan,
		"substantial", decision.Substantial,
		"structured", decision.Structured,
		"recent_plan_context", decision.RecentPlanContext,
		"result", decision.IsPlanUpdate)

	result := domain.ChatResult{
		Success:            true,
		Response:           response,
		ContainsPlanUpdate: decision.IsPlanUpdate,
		SessionID:          cc.SessionID,
		MessageCount:       cc.MessageCount,
	}

	s.auditExchange(userID, role, cc.SessionID, message, response, decision.IsPlanUpdate, threadHint)

	_, assistant, err := s.memory.RecordExchange(ctx, userID, role, message, response, decision.IsPlanUpdate)
	if err != nil {
		// The model already answered; losing the memory write degrades
		// recall but must not eat the response.
		s.logger.Error("failed to persist exchange",
			"user_id", userID,
			"agent_role", role,
			"session_id", cc.SessionID,
			"error", err)
		return result
	}

	if decision.IsPlanUpdate {
		if _, err := s.plans.SaveRevision(ctx, userID, role, response, plan.ModificationSummary(message), assistant.ID); err != nil {
			s.logger.Error("failed to save plan revision",
				"user_id", userID,
				"agent_role", role,
				"origin_turn_id", assistant.ID,
				"error", err)
		}
	}

	return result
}

func (s *Service) auditExchange(userID int64, role domain.Role, sessionID, message, response string, planUpdate bool, threadHint string) {
	var meta map[string]string
	if threadHint != "" {
		meta = map[string]string{"thread_hint": threadHint}
	}
	s.audit.Log(AuditEvent{
		UserID:    userID,
		SessionID: sessionID,
		AgentRole: string(role),
		Direction: "inbound",
		EventType: "chat_message",
		Content:   message,
		Meta:      meta,
	})
	s.audit.Log(AuditEvent{
		UserID:     userID,
		SessionID:  sessionID,
		AgentRole:  string(role),
		Direction:  "outbound",
		EventType:  "chat_message",
		Content:    response,
		PlanUpdate: planUpdate,
		Meta:       meta,
	})
}

// History returns up to limit conversation pairs from the pair's active
// session, oldest first.
func (s *Service) History(ctx context.Context, userID int64, role domain.Role, limit int) ([]domain.HistoryPair, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.memory.History(ctx, userID, role, limit)
}

// Clear retires the pair's conversation and sends plans back to the base
// version. Idempotent.
func (s *Service) Clear(ctx context.Context, userID int64, role domain.Role) error {
	if err := s.memory.Clear(ctx, userID, role); err != nil {
		return err
	}
	if err := s.plans.InvalidateCurrent(ctx, userID, role); err != nil {
		return fmt.Errorf("reset plans: %w", err)
	}
	return nil
}

// Analytics reports session statistics for the pair, or nil without error
// when the pair never chatted.
func (s *Service) Analytics(ctx context.Context, userID int64, role domain.Role) (*domain.SessionAnalytics, error) {
	return s.memory.Analytics(ctx, userID, role)
}
