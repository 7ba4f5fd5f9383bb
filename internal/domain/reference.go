package domain

import "time"

// ReferenceKind classifies what a context reference points at.
type ReferenceKind string

const (
	// ReferencePlan marks a message that mentions the user's plan.
	ReferencePlan ReferenceKind = "plan"
	// ReferencePreviousMessage marks anaphora ("that", "it", ...) whose
	// antecedent is somewhere in the recent conversation.
	ReferencePreviousMessage ReferenceKind = "previous_message"
)

// Reference confidence weights. Plan mentions are direct keyword hits;
// anaphora are weaker signals with no resolved target.
const (
	PlanReferenceConfidence     = 0.8
	AnaphoraReferenceConfidence = 0.6
)

// ContextReference is a lightweight annotation recorded against a human turn
// when the message appears to point at earlier conversation state. They are
// advisory: extraction is best-effort and failures never block a turn.
type ContextReference struct {
	ID         int64
	TurnID     int64
	Kind       ReferenceKind
	TargetID   *int64 // plan references resolve to a base plan id; anaphora carry none
	Snippet    string
	Confidence float64
	CreatedAt  time.Time
}
