package plan

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

func TestZZDebugGenerateAll(t *testing.T) {
	repo := newTestRepo(t)
	model := &fakeModel{response: "plan text", failWhen: "certified nutritionist"}
	gen := NewGenerator(repo, model, GeneratorConfig{Model: "plan-model"}, slog.Default())

	userID := seedProfile(t, repo, &domain.Profile{Name: "Sara"})

	plans, err := gen.GenerateAll(context.Background(), userID)
	t.Logf("plans: %+v", plans)
	t.Logf("err: %v", err)
	for i, req := range model.requests {
		if len(req.Messages) > 0 {
			t.Logf("request %d prompt first 120 chars: %.120s", i, req.Messages[0].Content)
		}
	}
}
