// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

// Repository defines the interface for persisting conversation, memory and
// plan data. Methods that look up a single record return (nil, nil) when no
// record exists; callers decide whether absence is an error.
type Repository interface {
	// GetActiveSession retrieves the most recently active session for a
	// (user, role) pair.
	GetActiveSession(ctx context.Context, userID int64, role domain.Role) (*domain.Session, error)

	// GetSession retrieves a session by its identifier.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// CreateSession inserts a new session record.
	CreateSession(ctx context.Context, session *domain.Session) error

	// TouchSession refreshes a session's last_activity timestamp.
	// Concurrent touches are last-write-wins.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error

	// ClearSession marks the session cleared and deletes its turns,
	// context references and summaries. Clearing an already cleared or
	// unknown session is a no-op.
	ClearSession(ctx context.Context, sessionID string) error

	// AppendTurnPair atomically persists a user message and the assistant
	// reply at the next two order numbers and advances the session's
	// message count. planUpdate is recorded on the assistant turn.
	AppendTurnPair(ctx context.Context, sessionID string, userID int64, role domain.Role, userMessage, assistantMessage string, planUpdate bool) (human *domain.Turn, assistant *domain.Turn, err error)

	// RecentTurns returns the last limit turns of a session in
	// chronological order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// Turns returns every turn of a session in chronological order.
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// TurnCount returns the number of persisted turns in a session.
	TurnCount(ctx context.Context, sessionID string) (int, error)

	// InsertReference records a context reference for a turn.
	InsertReference(ctx context.Context, ref *domain.ContextReference) error

	// RecentReferences returns the most recent references recorded in a
	// session, newest first.
	RecentReferences(ctx context.Context, sessionID string, limit int) ([]domain.ContextReference, error)

	// ActiveSummary retrieves the active summary for a session.
	ActiveSummary(ctx context.Context, sessionID string) (*domain.Summary, error)

	// SaveSummary inserts a summary and deactivates any prior active
	// summary of the same kind in the same transaction.
	SaveSummary(ctx context.Context, summary *domain.Summary) error

	// SessionAnalytics aggregates message and plan-update counts for a
	// session.
	SessionAnalytics(ctx context.Context, sessionID string) (*domain.SessionAnalytics, error)

	// CurrentPlanVersion retrieves the revision marked current for a
	// (user, role) pair.
	CurrentPlanVersion(ctx context.Context, userID int64, role domain.Role) (*domain.PlanVersion, error)

	// ListPlanVersions returns every revision for a pair, newest version
	// first.
	ListPlanVersions(ctx context.Context, userID int64, role domain.Role) ([]domain.PlanVersion, error)

	// SavePlanRevision atomically unsets all current flags for the pair,
	// assigns the next version number and inserts rev as current. The
	// assigned id, version, base plan lineage and timestamp are written
	// back into rev.
	SavePlanRevision(ctx context.Context, rev *domain.PlanVersion) error

	// InvalidateCurrentPlans unsets the current flag on every revision of
	// a pair, returning the pair to its base plan.
	InvalidateCurrentPlans(ctx context.Context, userID int64, role domain.Role) error

	// LatestBasePlan retrieves the most recent generated base plan for a
	// pair.
	LatestBasePlan(ctx context.Context, userID int64, role domain.Role) (*domain.BasePlan, error)

	// InsertBasePlan records a generated base plan and returns its id.
	InsertBasePlan(ctx context.Context, plan *domain.BasePlan) (int64, error)

	// GetUser retrieves an account record.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// CreateUser inserts an account record and returns its id.
	CreateUser(ctx context.Context, user *domain.User) (int64, error)

	// GetProfile retrieves a user's intake profile joined with the
	// account record.
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)

	// SaveProfile creates or replaces a user's intake profile.
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
