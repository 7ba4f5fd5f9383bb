package chat

import (
	"fmt"
	"strings"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
)

// Truncation budgets for prompt construction. Deterministic: the same context
// always renders the same preamble.
const (
	planPreviewRunes   = 500
	recentPromptWindow = 6
	recentPreviewRunes = 150
)

const promptRules = `
MEMORY & CONTEXT RULES:
1. COMPLETE MEMORY: You remember our ENTIRE conversation history
2. CONTEXT AWARENESS: Always reference relevant previous discussions
3. PROGRESS TRACKING: Track changes, feedback, and user progress over time
4. PERSONALIZATION: Adapt responses based on user's profile and history
5. CONTINUITY: Build naturally on our conversation flow

RESPONSE GUIDELINES:
- Keep casual responses under 300 words
- For plan updates/modifications, provide COMPLETE detailed plans
- Always acknowledge and build on previous discussions
- Reference user's specific preferences, constraints, and feedback
- Use encouraging, professional tone appropriate for your role
- When user asks for changes, provide FULL updated plans, not just modifications

CRITICAL:
- You have PERFECT memory of our conversation
- When updating plans, provide COMPLETE new versions
- Always reference relevant past discussions naturally
- Remember user's specific goals, constraints, and preferences

Current user message will follow. Respond with your full expertise and memory!`

// buildSystemPrompt composes the instruction preamble for one exchange:
// persona, profile facts, current plan status, conversation memory and the
// standing response rules.
func buildSystemPrompt(role domain.Role, profile *domain.Profile, currentPlan *domain.CurrentPlan, cc *domain.ConversationContext) string {
	persona := role.Persona()

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s with COMPLETE CONVERSATION MEMORY and full access to user context.\n\n", persona.Title)

	b.WriteString("ROLE & PERSONALITY:\n")
	fmt.Fprintf(&b, "- Role: %s\n", persona.Title)
	fmt.Fprintf(&b, "- Personality: %s\n", persona.Personality)
	fmt.Fprintf(&b, "- Expertise: %s\n", persona.Expertise)
	fmt.Fprintf(&b, "- Response Style: %s\n\n", persona.ResponseStyle)

	b.WriteString("USER CONTEXT:\n")
	b.WriteString(profile.Facts())
	b.WriteString("\n\n")

	if currentPlan != nil && currentPlan.HasPlan {
		status := "ORIGINAL"
		if currentPlan.IsUpdated {
			status = "UPDATED"
		}
		fmt.Fprintf(&b, "CURRENT %s PLAN: %s...\n", status, shared.TruncateRunes(currentPlan.Content, planPreviewRunes))
		if currentPlan.LastModification != "" {
			fmt.Fprintf(&b, "Last Change: %s\n", currentPlan.LastModification)
		}
		b.WriteString("\n")
	}

	b.WriteString("CONVERSATION MEMORY:\n")
	fmt.Fprintf(&b, "Total Messages: %d\n", cc.MessageCount)
	if cc.Summary != "" {
		fmt.Fprintf(&b, "CONVERSATION SUMMARY: %s\n", cc.Summary)
	}

	b.WriteString("\nRecent Discussion:\n")
	recent := cc.RecentMessages
	if len(recent) > recentPromptWindow {
		recent = recent[len(recent)-recentPromptWindow:]
	}
	for _, msg := range recent {
		speaker := "User"
		if msg.Type == domain.MessageAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s...\n", speaker, shared.TruncateRunes(msg.Content, recentPreviewRunes))
	}

	b.WriteString(promptRules)
	return b.String()
}
