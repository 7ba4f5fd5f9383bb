package domain

import "time"

// BasePlan is an initially generated recommendation for a (user, role) pair.
// It acts as version 1 of the plan lineage until a conversation produces a
// revision.
type BasePlan struct {
	ID             int64
	UserID         int64
	Role           Role
	Recommendation string
	CreatedAt      time.Time
}

// PlanVersion is one revision in a plan's history. Version numbers are
// monotonically increasing and gapless per (user, role); exactly one version
// is current at any time while revisions exist.
type PlanVersion struct {
	ID                  int64
	UserID              int64
	Role                Role
	Version             int
	Content             string
	ModificationSummary string
	OriginTurnID        int64  // assistant turn whose response became this version
	BasePlanID          *int64 // lineage back to the generated base plan, when one exists
	IsCurrent           bool
	CreatedAt           time.Time
}

// CurrentPlan is the answer to "what plan does this user have right now".
// It is produced by a fallback chain: current revision, then latest base
// plan, then an explicit no-plan state. Reading a plan never fails just
// because nothing exists yet.
type CurrentPlan struct {
	HasPlan          bool      `json:"has_plan"`
	Version          int       `json:"version"`
	IsUpdated        bool      `json:"is_updated"`
	Content          string    `json:"content,omitempty"`
	LastModification string    `json:"last_modification,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
	Message          string    `json:"message,omitempty"`
}

// NoPlanMessage is surfaced when neither a revision nor a base plan exists.
const NoPlanMessage = "No previous plan found. Ready to create your first personalized plan!"
