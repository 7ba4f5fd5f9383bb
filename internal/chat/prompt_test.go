package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

func TestBuildSystemPromptIncludesPersonaPlanAndMemory(t *testing.T) {
	t.Parallel()

	profile := &domain.Profile{
		UserID:   7,
		Name:     "Sara",
		Age:      31,
		Complete: true,
		Physical: domain.PhysicalStats{Height: 170, Weight: 65, BMI: 22.5},
		Goals:    domain.Goals{Primary: "muscle gain"},
	}
	currentPlan := &domain.CurrentPlan{
		HasPlan:          true,
		Version:          3,
		IsUpdated:        true,
		Content:          strings.Repeat("p", 600),
		LastModification: "User requested: harder week two...",
	}

	var recent []domain.ContextMessage
	for i := 1; i <= 7; i++ {
		msgType := domain.MessageHuman
		if i%2 == 0 {
			msgType = domain.MessageAssistant
		}
		recent = append(recent, domain.ContextMessage{Type: msgType, Content: fmt.Sprintf("message %d", i)})
	}
	recent = append(recent, domain.ContextMessage{Type: domain.MessageAssistant, Content: strings.Repeat("y", 200)})
	cc := &domain.ConversationContext{
		SessionID:      "FitnessTrainer_7_1",
		MessageCount:   24,
		Summary:        "User is four weeks into a strength block.",
		RecentMessages: recent,
	}

	prompt := buildSystemPrompt(domain.RoleFitnessTrainer, profile, currentPlan, cc)

	for _, want := range []string{
		"You are Expert Personal Trainer & Exercise Physiologist with COMPLETE CONVERSATION MEMORY",
		"- Personality: motivating, knowledgeable, safety-conscious",
		"User: Sara | Age: 31 | BMI: 22.5 | Goal: muscle gain",
		"CURRENT UPDATED PLAN: " + strings.Repeat("p", 500) + "...",
		"Last Change: User requested: harder week two...",
		"Total Messages: 24",
		"CONVERSATION SUMMARY: User is four weeks into a strength block.",
		"Recent Discussion:",
		"User: message 3...",
		"Assistant: " + strings.Repeat("y", 150) + "...",
		"Respond with your full expertise and memory!",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if strings.Contains(prompt, strings.Repeat("p", 501)) {
		t.Error("plan preview must stop at 500 runes")
	}
	if strings.Contains(prompt, strings.Repeat("y", 151)) {
		t.Error("recent message preview must stop at 150 runes")
	}
	if strings.Contains(prompt, "message 1") || strings.Contains(prompt, "message 2") {
		t.Error("only the last 6 messages belong in the prompt")
	}
}

func TestBuildSystemPromptMarksOriginalPlans(t *testing.T) {
	t.Parallel()

	currentPlan := &domain.CurrentPlan{
		HasPlan:   true,
		Version:   1,
		IsUpdated: false,
		Content:   "Base 4-week plan",
	}
	cc := &domain.ConversationContext{SessionID: "Nutritionist_2_1", MessageCount: 4}

	prompt := buildSystemPrompt(domain.RoleNutritionist, nil, currentPlan, cc)

	if !strings.Contains(prompt, "CURRENT ORIGINAL PLAN: Base 4-week plan...") {
		t.Error("expected the base plan marked as ORIGINAL")
	}
	if strings.Contains(prompt, "Last Change:") {
		t.Error("no modification line expected for a base plan")
	}
}

func TestBuildSystemPromptDegradesWithoutProfileOrPlan(t *testing.T) {
	t.Parallel()

	cc := &domain.ConversationContext{SessionID: "HealthAdvisor_1_1"}
	prompt := buildSystemPrompt(domain.RoleHealthAdvisor, nil, &domain.CurrentPlan{Message: domain.NoPlanMessage}, cc)

	if !strings.Contains(prompt, "User: Unknown User") {
		t.Error("expected the unknown-user fallback")
	}
	if strings.Contains(prompt, "CURRENT") {
		t.Error("no plan block expected without a plan")
	}
	if !strings.Contains(prompt, "Total Messages: 0") {
		t.Error("expected a zero message count")
	}
	if strings.Contains(prompt, "CONVERSATION SUMMARY") {
		t.Error("no summary line expected for a fresh session")
	}
	if !strings.Contains(prompt, "MEMORY & CONTEXT RULES:") {
		t.Error("standing rules must always be present")
	}
}
