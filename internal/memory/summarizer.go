package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
)

const (
	// A conversation qualifies for summarization once it holds more than
	// this many turns.
	summaryTurnThreshold = 20
	// The most recent turns stay out of the summary; the recent window
	// already carries them verbatim.
	summaryKeepRecent = 10
	// Each condensed turn is cut to this many runes before summarization.
	condensedTurnRunes = 200
)

const summaryPrompt = `Please create a concise summary of this conversation between a user and their %s:

%s
Focus on:
- Key topics discussed
- Important decisions made
- User's preferences and feedback
- Plan modifications or updates
- Health goals and progress

Summary:`

// getOrCreateSummary returns the active summary for a session. When none
// exists and the conversation has outgrown the recent window, one is
// generated and persisted; subsequent calls reuse it without touching the
// model again. Every failure path degrades to an empty summary.
func (m *Manager) getOrCreateSummary(ctx context.Context, session *domain.Session) string {
	existing, err := m.repo.ActiveSummary(ctx, session.ID)
	if err != nil {
		m.logger.Warn("failed to load active summary",
			"session_id", session.ID,
			"error", err)
		return ""
	}
	if existing != nil {
		return existing.Content
	}

	count, err := m.repo.TurnCount(ctx, session.ID)
	if err != nil {
		m.logger.Warn("failed to count turns",
			"session_id", session.ID,
			"error", err)
		return ""
	}
	if count <= summaryTurnThreshold || m.llm == nil {
		return ""
	}

	return m.summarize(ctx, session)
}

func (m *Manager) summarize(ctx context.Context, session *domain.Session) string {
	turns, err := m.repo.Turns(ctx, session.ID)
	if err != nil {
		m.logger.Warn("failed to load turns for summarization",
			"session_id", session.ID,
			"error", err)
		return ""
	}
	if len(turns) <= summaryKeepRecent {
		return ""
	}

	older := turns[:len(turns)-summaryKeepRecent]
	var b strings.Builder
	for _, t := range older {
		speaker := "User"
		if t.Type == domain.MessageAssistant {
			speaker = "Assistant"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(shared.TruncateRunes(t.Content, condensedTurnRunes))
		b.WriteString("...\n")
	}

	response, err := m.llm.Complete(ctx, llm.Request{
		Model:       m.opts.SummaryModel,
		Temperature: m.opts.SummaryTemperature,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(summaryPrompt, session.Role, b.String())},
		},
	})
	if err != nil {
		m.logger.Warn("conversation summarization failed",
			"session_id", session.ID,
			"error", err)
		return ""
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return ""
	}

	record := &domain.Summary{
		SessionID:  session.ID,
		UserID:     session.UserID,
		Role:       session.Role,
		Kind:       domain.SummaryKindSession,
		Content:    summary,
		StartOrder: older[0].Order,
		EndOrder:   older[len(older)-1].Order,
	}
	if err := m.repo.SaveSummary(ctx, record); err != nil {
		m.logger.Warn("failed to persist summary",
			"session_id", session.ID,
			"error", err)
		return summary
	}

	m.logger.Info("created conversation summary",
		"session_id", session.ID,
		"turns_condensed", len(older))
	return summary
}
