// Package plan owns plan lifecycle: initial generation from intake profiles,
// conversational revisions with monotonically increasing version numbers, and
// the fallback ladder that decides which plan a conversation sees.
package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

// Modification summaries keep the first 200 runes of the requesting message.
const modificationSummaryRunes = 200

// ModificationSummary renders the audit line stored alongside a revision.
func ModificationSummary(message string) string {
	return "User requested: " + shared.TruncateRunes(message, modificationSummaryRunes) + "..."
}

// Service manages plan versions for (user, agent role) pairs.
type Service struct {
	repo   store.Repository
	locks  *shared.KeyedMutex
	logger *slog.Logger
}

func NewService(repo store.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locks: &shared.KeyedMutex{}, logger: logger}
}

func lockKey(userID int64, role domain.Role) string {
	return fmt.Sprintf("%d:%s", userID, role)
}

// SaveRevision stores planText as the next version for the pair and marks it
// current. Concurrent revisions for the same pair serialize here so version
// numbers stay gapless.
func (s *Service) SaveRevision(ctx context.Context, userID int64, role domain.Role, planText, modSummary string, originTurnID int64) (*domain.PlanVersion, error) {
	key := lockKey(userID, role)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	rev := &domain.PlanVersion{
		UserID:              userID,
		Role:                role,
		Content:             planText,
		ModificationSummary: modSummary,
		OriginTurnID:        originTurnID,
	}
	if err := s.repo.SavePlanRevision(ctx, rev); err != nil {
		return nil, err
	}

	s.logger.Info("saved plan revision",
		"user_id", userID,
		"agent_role", role,
		"version", rev.Version)
	return rev, nil
}

// Current resolves which plan the pair is on: the current revision when one
// exists, else the latest base plan presented as version 1, else a friendly
// no-plan sentinel. Absence is never an error.
func (s *Service) Current(ctx context.Context, userID int64, role domain.Role) (*domain.CurrentPlan, error) {
	version, err := s.repo.CurrentPlanVersion(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("load current plan version: %w", err)
	}
	if version != nil {
		return &domain.CurrentPlan{
			HasPlan:          true,
			Version:          version.Version,
			IsUpdated:        true,
			Content:          version.Content,
			LastModification: version.ModificationSummary,
			UpdatedAt:        version.CreatedAt,
		}, nil
	}

	base, err := s.repo.LatestBasePlan(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("load base plan: %w", err)
	}
	if base != nil {
		return &domain.CurrentPlan{
			HasPlan:   true,
			Version:   1,
			IsUpdated: false,
			Content:   base.Recommendation,
			UpdatedAt: base.CreatedAt,
		}, nil
	}

	return &domain.CurrentPlan{HasPlan: false, Message: domain.NoPlanMessage}, nil
}

// Versions lists the revision history for a pair, newest version first.
func (s *Service) Versions(ctx context.Context, userID int64, role domain.Role) ([]domain.PlanVersion, error) {
	return s.repo.ListPlanVersions(ctx, userID, role)
}

// InvalidateCurrent drops the current flag from every revision of the pair,
// sending the fallback ladder back to the base plan. Called when a
// conversation is cleared.
func (s *Service) InvalidateCurrent(ctx context.Context, userID int64, role domain.Role) error {
	key := lockKey(userID, role)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	return s.repo.InvalidateCurrentPlans(ctx, userID, role)
}
