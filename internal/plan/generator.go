package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

// GeneratorConfig tunes base-plan generation.
type GeneratorConfig struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Generator produces the initial per-role plans from an intake profile.
// Revisions made in conversation later descend from these.
type Generator struct {
	repo   store.Repository
	llm    llm.Client
	cfg    GeneratorConfig
	logger *slog.Logger
}

func NewGenerator(repo store.Repository, client llm.Client, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{repo: repo, llm: client, cfg: cfg, logger: logger}
}

// Generate renders the role's plan prompt from the user's profile, asks the
// model for a plan and records it as the newest base plan for the pair.
func (g *Generator) Generate(ctx context.Context, userID int64, role domain.Role) (*domain.BasePlan, error) {
	profile, err := g.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("unknown user %d", userID)
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("profile for user %d has no name", userID)
	}

	prompt, err := renderPrompt(role, profile)
	if err != nil {
		return nil, err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	recommendation, err := g.llm.Complete(ctx, llm.Request{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s plan: %w", role, err)
	}

	basePlan := &domain.BasePlan{
		UserID:         userID,
		Role:           role,
		Recommendation: recommendation,
	}
	if _, err := g.repo.InsertBasePlan(ctx, basePlan); err != nil {
		return nil, fmt.Errorf("persist %s plan: %w", role, err)
	}

	g.logger.Info("generated base plan",
		"user_id", userID,
		"agent_role", role,
		"plan_id", basePlan.ID)
	return basePlan, nil
}

// GenerateAll runs every plan-generating role concurrently. Roles that
// succeed are returned even when others fail; the joined error reports each
// failed role.
func (g *Generator) GenerateAll(ctx context.Context, userID int64) (map[domain.Role]*domain.BasePlan, error) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	plans := make(map[domain.Role]*domain.BasePlan)
	var errs []error

	for _, role := range domain.PlanRoles() {
		wg.Add(1)
		go func(role domain.Role) {
			defer wg.Done()
			basePlan, err := g.Generate(ctx, userID, role)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", role, err))
				return
			}
			plans[role] = basePlan
		}(role)
	}
	wg.Wait()

	return plans, errors.Join(errs...)
}
