package memory

import (
	"context"
	"strings"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
)

// First 200 runes of the message are kept as the reference snippet.
const referenceSnippetRunes = 200

// extractReferences scans a user message for mentions of the user's plan and
// for anaphora pointing back into the conversation, and records what it finds
// against the human turn. This is a heuristic signal layer: failures are
// logged and swallowed so they can never abort the turn that triggered them.
func (m *Manager) extractReferences(ctx context.Context, turnID int64, message string, userID int64, role domain.Role) {
	lower := strings.ToLower(message)
	snippet := shared.TruncateRunes(message, referenceSnippetRunes)

	if shared.ContainsAny(lower, m.opts.Keywords.PlanTerms) {
		plan, err := m.repo.LatestBasePlan(ctx, userID, role)
		if err != nil {
			m.logger.Warn("failed to resolve plan reference target",
				"turn_id", turnID,
				"error", err)
		} else if plan != nil {
			// Only record a plan reference when there is a plan to point at.
			ref := &domain.ContextReference{
				TurnID:     turnID,
				Kind:       domain.ReferencePlan,
				TargetID:   &plan.ID,
				Snippet:    snippet,
				Confidence: domain.PlanReferenceConfidence,
			}
			if err := m.repo.InsertReference(ctx, ref); err != nil {
				m.logger.Warn("failed to record plan reference",
					"turn_id", turnID,
					"error", err)
			}
		}
	}

	if shared.ContainsAny(lower, m.opts.Keywords.AnaphoraTerms) {
		ref := &domain.ContextReference{
			TurnID:     turnID,
			Kind:       domain.ReferencePreviousMessage,
			Snippet:    snippet,
			Confidence: domain.AnaphoraReferenceConfidence,
		}
		if err := m.repo.InsertReference(ctx, ref); err != nil {
			m.logger.Warn("failed to record anaphora reference",
				"turn_id", turnID,
				"error", err)
		}
	}
}
