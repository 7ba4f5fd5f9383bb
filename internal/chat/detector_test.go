package chat

import (
	"strings"
	"testing"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

func TestIsPlanUpdateDecisions(t *testing.T) {
	t.Parallel()
	kw := config.DefaultKeywords().Detector
	planResponse := structuredPlanResponse()

	tests := []struct {
		name     string
		message  string
		response string
		recent   []domain.ContextMessage
		want     bool
	}{
		{
			name:     "explicit request with structured plan response",
			message:  "Please change my workout plan",
			response: planResponse,
			want:     true,
		},
		{
			name:     "casual question never versions",
			message:  "How's the weather today?",
			response: planResponse,
			want:     false,
		},
		{
			name:     "short confirmation is not a plan",
			message:  "Please change my workout plan",
			response: "Done! I swapped Monday and Thursday in your workout plan. ## Week 1. updated plan attached.",
			want:     false,
		},
		{
			name:     "recent context carries intent across turns",
			message:  "Yes, go ahead",
			response: planResponse,
			recent: []domain.ContextMessage{
				{Type: domain.MessageHuman, Content: "Can you change my workout plan for travel?"},
				{Type: domain.MessageAssistant, Content: "Happy to - should I keep the same weekly volume?"},
			},
			want: true,
		},
		{
			name:     "stale intent outside the context window is ignored",
			message:  "Yes, go ahead",
			response: planResponse,
			recent: []domain.ContextMessage{
				{Type: domain.MessageHuman, Content: "Can you change my workout plan for travel?"},
				{Type: domain.MessageAssistant, Content: "Happy to - tell me about the trip first."},
				{Type: domain.MessageHuman, Content: "Two weeks in hotels with small gyms"},
				{Type: domain.MessageAssistant, Content: "Noted, hotel gyms usually have dumbbells and a treadmill."},
				{Type: domain.MessageHuman, Content: "and the food there is usually heavy"},
				{Type: domain.MessageAssistant, Content: "We can keep meals light around training days."},
			},
			want: false,
		},
		{
			name:     "persian update request",
			message:  "لطفاً برنامه رو تغییر بده",
			response: planResponse,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsPlanUpdate(tt.message, tt.response, tt.recent, kw)
			if got != tt.want {
				t.Fatalf("IsPlanUpdate = %v, want %v (signals: %+v)",
					got, tt.want, Explain(tt.message, tt.response, tt.recent, kw))
			}
		})
	}
}

func TestStructureMarkersAreCaseSensitive(t *testing.T) {
	t.Parallel()
	kw := config.DefaultKeywords().Detector

	// Long, plan-like, but pure lowercase prose without heading structure.
	var b strings.Builder
	b.WriteString("here is the updated plan in plain prose. ")
	for i := 0; i < 40; i++ {
		b.WriteString("during week one you walk daily and stretch in the evening, then each day adds a little more distance. ")
	}
	prose := b.String()

	d := Explain("please change it", prose, nil, kw)
	if d.Structured {
		t.Fatalf("lowercase prose should not count as structured: %+v", d)
	}
	if d.IsPlanUpdate {
		t.Fatal("prose without heading structure must not be versioned")
	}

	structured := strings.Replace(prose, "week one", "Week one", 1)
	d = Explain("please change it", structured, nil, kw)
	if !d.Structured || !d.IsPlanUpdate {
		t.Fatalf("capitalized heading should flip the decision: %+v", d)
	}
}

func TestIsPlanUpdateIsDeterministic(t *testing.T) {
	t.Parallel()
	kw := config.DefaultKeywords().Detector
	recent := []domain.ContextMessage{
		{Type: domain.MessageHuman, Content: "adjust my meal plan for the cutting phase"},
	}
	response := structuredPlanResponse()

	first := IsPlanUpdate("sounds good", response, recent, kw)
	if !first {
		t.Fatal("expected the plan-context path to classify as an update")
	}
	for i := 0; i < 100; i++ {
		if IsPlanUpdate("sounds good", response, recent, kw) != first {
			t.Fatal("same inputs must always classify the same way")
		}
	}
}

func TestCustomKeywordsSwapLocale(t *testing.T) {
	t.Parallel()
	kw := config.DefaultKeywords().Detector
	kw.UpdateRequestTerms = []string{"umgestalten"}

	response := structuredPlanResponse()
	if !IsPlanUpdate("Bitte das Programm umgestalten", response, nil, kw) {
		t.Fatal("expected the swapped keyword set to drive detection")
	}
	if IsPlanUpdate("Please change my workout plan", response, nil, kw) {
		t.Fatal("default terms must not apply once replaced")
	}
}
