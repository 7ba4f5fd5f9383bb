// Package memory maintains per-user, per-agent conversation state: session
// lifecycle, turn history, heuristic context references and rolling summaries.
// It is the only layer that decides what an agent remembers.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

const (
	// Recent-window size in user/assistant pairs.
	recentWindowPairs = 10
	// References surfaced to prompt construction.
	recentReferenceLimit = 5
)

// Options tunes summarization and reference extraction.
type Options struct {
	SummaryModel       string
	SummaryTemperature float64
	Keywords           config.ExtractorKeywords
}

// Manager owns conversation memory for every (user, agent role) pair.
type Manager struct {
	repo   store.Repository
	llm    llm.Client
	opts   Options
	locks  *shared.KeyedMutex
	logger *slog.Logger
}

// NewManager creates a memory manager. The LLM client may be nil, in which
// case long conversations simply never gain a summary.
func NewManager(repo store.Repository, client llm.Client, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:   repo,
		llm:    client,
		opts:   opts,
		locks:  &shared.KeyedMutex{},
		logger: logger,
	}
}

func lockKey(userID int64, role domain.Role) string {
	return fmt.Sprintf("%d:%s", userID, role)
}

// GetOrCreateSession returns the active session for a (user, role) pair,
// creating one when none exists. Reuse refreshes the activity timestamp.
// Concurrent callers for the same pair are serialized so exactly one session
// is created.
func (m *Manager) GetOrCreateSession(ctx context.Context, userID int64, role domain.Role) (*domain.Session, error) {
	key := lockKey(userID, role)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	session, err := m.repo.GetActiveSession(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("look up active session: %w", err)
	}
	if session != nil {
		if err := m.repo.TouchSession(ctx, session.ID, time.Now()); err != nil {
			m.logger.Warn("failed to refresh session activity",
				"session_id", session.ID,
				"error", err)
		}
		return session, nil
	}

	now := time.Now()
	session = &domain.Session{
		ID:           fmt.Sprintf("%s_%d_%d", role, userID, now.UnixNano()),
		UserID:       userID,
		Role:         role,
		Name:         fmt.Sprintf("%s Chat Session", role),
		Status:       domain.SessionActive,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := m.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("created conversation session",
		"session_id", session.ID,
		"user_id", userID,
		"agent_role", role)
	return session, nil
}

// AssembleContext gathers everything prompt construction needs: the recent
// window, the rolling summary for long conversations, and heuristic context
// references. Store failures on the optional parts degrade to an empty slot
// rather than failing the whole assembly.
func (m *Manager) AssembleContext(ctx context.Context, userID int64, role domain.Role) (*domain.ConversationContext, error) {
	session, err := m.GetOrCreateSession(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	cc := &domain.ConversationContext{
		SessionID:    session.ID,
		MessageCount: session.MessageCount,
	}

	turns, err := m.repo.RecentTurns(ctx, session.ID, recentWindowPairs*2)
	if err != nil {
		m.logger.Warn("failed to load recent turns",
			"session_id", session.ID,
			"error", err)
	}
	for _, t := range turns {
		cc.RecentMessages = append(cc.RecentMessages, domain.ContextMessage{
			Type:      t.Type,
			Content:   t.Content,
			CreatedAt: t.CreatedAt,
		})
	}

	cc.Summary = m.getOrCreateSummary(ctx, session)

	refs, err := m.repo.RecentReferences(ctx, session.ID, recentReferenceLimit)
	if err != nil {
		m.logger.Warn("failed to load context references",
			"session_id", session.ID,
			"error", err)
	}
	cc.References = refs

	return cc, nil
}

// RecordExchange persists one user/assistant pair at the next two order
// numbers and extracts context references from the user message. Extraction
// is best-effort; a failed extraction never fails the exchange.
func (m *Manager) RecordExchange(ctx context.Context, userID int64, role domain.Role, userMessage, assistantMessage string, planUpdate bool) (*domain.Turn, *domain.Turn, error) {
	session, err := m.GetOrCreateSession(ctx, userID, role)
	if err != nil {
		return nil, nil, err
	}

	human, assistant, err := m.repo.AppendTurnPair(ctx, session.ID, userID, role, userMessage, assistantMessage, planUpdate)
	if err != nil {
		return nil, nil, fmt.Errorf("persist exchange: %w", err)
	}

	m.extractReferences(ctx, human.ID, userMessage, userID, role)

	return human, assistant, nil
}

// History returns up to limit user/assistant pairs from the active session,
// oldest first. A pair that never chatted gets an empty history and no
// session is created on its behalf.
func (m *Manager) History(ctx context.Context, userID int64, role domain.Role, limit int) ([]domain.HistoryPair, error) {
	session, err := m.repo.GetActiveSession(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("look up active session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	turns, err := m.repo.RecentTurns(ctx, session.ID, limit*2)
	if err != nil {
		return nil, fmt.Errorf("load history turns: %w", err)
	}

	var pairs []domain.HistoryPair
	var pending *domain.Turn
	for i := range turns {
		t := &turns[i]
		switch t.Type {
		case domain.MessageHuman:
			pending = t
		case domain.MessageAssistant:
			if pending == nil {
				continue
			}
			pairs = append(pairs, domain.HistoryPair{
				Human:         pending.Content,
				AI:            t.Content,
				Timestamp:     t.CreatedAt,
				WasPlanUpdate: t.ContainsPlanUpdate,
			})
			pending = nil
		}
	}

	return pairs, nil
}

// Clear retires the active session for a (user, role) pair and deletes its
// turns, references and summaries. Clearing a pair with no active session is
// a no-op; the next conversation starts a fresh session with a new id.
func (m *Manager) Clear(ctx context.Context, userID int64, role domain.Role) error {
	key := lockKey(userID, role)
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	session, err := m.repo.GetActiveSession(ctx, userID, role)
	if err != nil {
		return fmt.Errorf("look up active session: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := m.repo.ClearSession(ctx, session.ID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	m.logger.Info("cleared conversation session",
		"session_id", session.ID,
		"user_id", userID,
		"agent_role", role)
	return nil
}

// Analytics summarizes the active session for a (user, role) pair, or nil
// when there is none.
func (m *Manager) Analytics(ctx context.Context, userID int64, role domain.Role) (*domain.SessionAnalytics, error) {
	session, err := m.repo.GetActiveSession(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("look up active session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	return m.repo.SessionAnalytics(ctx, session.ID)
}
