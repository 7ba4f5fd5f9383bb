package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
)

// Decision carries the intermediate signals behind a plan-update
// classification, for structured logging and tests.
type Decision struct {
	UserWantsUpdate   bool
	ResponseHasPlan   bool
	Substantial       bool
	Structured        bool
	RecentPlanContext bool
	IsPlanUpdate      bool
}

// IsPlanUpdate classifies whether an exchange produced a plan revision worth
// versioning. Pure and deterministic: same inputs, same answer, no side
// effects.
func IsPlanUpdate(userMessage, response string, recent []domain.ContextMessage, kw config.DetectorKeywords) bool {
	return Explain(userMessage, response, recent, kw).IsPlanUpdate
}

// Explain runs the classifier and exposes each intermediate signal.
//
// A response counts as a plan update when the user asked for a change and the
// response reads like a substantial, structured plan; or when the recent
// conversation was already about changing plans and a substantial plan-like
// response arrives, even if the triggering message itself carried no update
// keyword ("yes, go ahead").
func Explain(userMessage, response string, recent []domain.ContextMessage, kw config.DetectorKeywords) Decision {
	d := Decision{
		UserWantsUpdate: shared.ContainsAny(strings.ToLower(userMessage), kw.UpdateRequestTerms),
		ResponseHasPlan: shared.ContainsAny(strings.ToLower(response), kw.PlanResponseMarkers),
		Substantial:     utf8.RuneCountInString(response) > kw.MinSubstantialLength,
		// Structure markers are case-sensitive: "Week" and "Day" as headings,
		// not every mention of a weekday.
		Structured: shared.ContainsAny(response, kw.StructureMarkers),
	}

	if len(recent) > 0 && kw.RecentWindow > 0 {
		window := recent
		if len(window) > kw.RecentWindow {
			window = window[len(window)-kw.RecentWindow:]
		}
		var b strings.Builder
		for i, msg := range window {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(msg.Content)
		}
		d.RecentPlanContext = shared.ContainsAny(strings.ToLower(b.String()), kw.UpdateRequestTerms)
	}

	d.IsPlanUpdate = (d.UserWantsUpdate && d.ResponseHasPlan && d.Substantial && d.Structured) ||
		(d.RecentPlanContext && d.ResponseHasPlan && d.Substantial)
	return d
}
