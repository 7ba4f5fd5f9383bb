package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

type fakeModel struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeModel) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestManager(t *testing.T, model llm.Client) (*Manager, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	mgr := NewManager(repo, model, Options{
		SummaryModel:       "test-summary-model",
		SummaryTemperature: 0.3,
		Keywords:           config.DefaultKeywords().Extractor,
	}, slog.Default())
	return mgr, repo
}

func TestGetOrCreateSessionReusesActiveSession(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	first, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	if !strings.HasPrefix(first.ID, "fitness_trainer_7_") {
		t.Fatalf("unexpected session id %q", first.ID)
	}

	second, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected session reuse, got %q then %q", first.ID, second.ID)
	}

	// A different role gets its own session.
	other, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleNutritionist)
	if err != nil {
		t.Fatalf("other role session: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("expected role isolation between sessions")
	}
}

func TestGetOrCreateSessionConcurrentCallersShareOneSession(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	const callers = 8
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleHealthAdvisor)
			if err != nil {
				t.Errorf("concurrent session: %v", err)
				return
			}
			ids <- session.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Fatalf("expected exactly one session id, got %d: %v", len(seen), seen)
	}
}

func TestRecordExchangeExtractsReferences(t *testing.T) {
	mgr, repo := newTestManager(t, nil)
	ctx := context.Background()

	baseID, err := repo.InsertBasePlan(ctx, &domain.BasePlan{
		UserID: 7, Role: domain.RoleFitnessTrainer, Recommendation: "base workout plan",
	})
	if err != nil {
		t.Fatalf("insert base plan: %v", err)
	}

	// Plan keyword plus anaphora in one message yields both reference kinds.
	_, _, err = mgr.RecordExchange(ctx, 7, domain.RoleFitnessTrainer,
		"Can you change that plan for me?", "Sure, here is a tweak.", false)
	if err != nil {
		t.Fatalf("record exchange: %v", err)
	}

	session, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	refs, err := repo.RecentReferences(ctx, session.ID, 10)
	if err != nil {
		t.Fatalf("load references: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}

	var planRef, anaphoraRef *domain.ContextReference
	for i := range refs {
		switch refs[i].Kind {
		case domain.ReferencePlan:
			planRef = &refs[i]
		case domain.ReferencePreviousMessage:
			anaphoraRef = &refs[i]
		}
	}
	if planRef == nil || anaphoraRef == nil {
		t.Fatalf("expected one reference of each kind, got %+v", refs)
	}
	if planRef.Confidence != domain.PlanReferenceConfidence {
		t.Fatalf("expected plan confidence %.1f, got %.1f", domain.PlanReferenceConfidence, planRef.Confidence)
	}
	if planRef.TargetID == nil || *planRef.TargetID != baseID {
		t.Fatalf("expected plan reference target %d, got %v", baseID, planRef.TargetID)
	}
	if anaphoraRef.TargetID != nil {
		t.Fatalf("anaphora reference must not carry a target, got %v", anaphoraRef.TargetID)
	}
	if anaphoraRef.Confidence != domain.AnaphoraReferenceConfidence {
		t.Fatalf("expected anaphora confidence %.1f, got %.1f", domain.AnaphoraReferenceConfidence, anaphoraRef.Confidence)
	}
}

func TestRecordExchangeLocaleKeywordsMatch(t *testing.T) {
	mgr, repo := newTestManager(t, nil)
	ctx := context.Background()

	if _, err := repo.InsertBasePlan(ctx, &domain.BasePlan{
		UserID: 7, Role: domain.RoleNutritionist, Recommendation: "base meal plan",
	}); err != nil {
		t.Fatalf("insert base plan: %v", err)
	}

	_, _, err := mgr.RecordExchange(ctx, 7, domain.RoleNutritionist,
		"لطفا برنامه غذایی را سبکتر کن", "Done.", false)
	if err != nil {
		t.Fatalf("record exchange: %v", err)
	}

	session, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleNutritionist)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	refs, err := repo.RecentReferences(ctx, session.ID, 10)
	if err != nil {
		t.Fatalf("load references: %v", err)
	}

	foundPlan := false
	for _, ref := range refs {
		if ref.Kind == domain.ReferencePlan {
			foundPlan = true
		}
	}
	if !foundPlan {
		t.Fatalf("expected Persian plan keyword to register a plan reference, got %+v", refs)
	}
}

func TestRecordExchangeWithoutBasePlanSkipsPlanReference(t *testing.T) {
	mgr, repo := newTestManager(t, nil)
	ctx := context.Background()

	_, _, err := mgr.RecordExchange(ctx, 7, domain.RoleFitnessTrainer,
		"I want a new plan", "Here you go.", false)
	if err != nil {
		t.Fatalf("record exchange: %v", err)
	}

	session, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	refs, err := repo.RecentReferences(ctx, session.ID, 10)
	if err != nil {
		t.Fatalf("load references: %v", err)
	}
	for _, ref := range refs {
		if ref.Kind == domain.ReferencePlan {
			t.Fatalf("plan reference recorded with nothing to point at: %+v", ref)
		}
	}
}

func TestAssembleContextCarriesWindowSummarySlotAndCount(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleHealthAdvisor,
			fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), false); err != nil {
			t.Fatalf("record exchange %d: %v", i, err)
		}
	}

	cc, err := mgr.AssembleContext(ctx, 7, domain.RoleHealthAdvisor)
	if err != nil {
		t.Fatalf("assemble context: %v", err)
	}
	if cc.MessageCount != 24 {
		t.Fatalf("expected message count 24, got %d", cc.MessageCount)
	}
	if len(cc.RecentMessages) != 20 {
		t.Fatalf("expected 20 recent messages, got %d", len(cc.RecentMessages))
	}
	// Window starts at pair 2 (turns 5..24), oldest first.
	if cc.RecentMessages[0].Content != "question 2" {
		t.Fatalf("expected window to start at question 2, got %q", cc.RecentMessages[0].Content)
	}
	if cc.RecentMessages[19].Content != "answer 11" {
		t.Fatalf("expected window to end at answer 11, got %q", cc.RecentMessages[19].Content)
	}
	if cc.RecentMessages[0].Type != domain.MessageHuman || cc.RecentMessages[1].Type != domain.MessageAssistant {
		t.Fatal("expected alternating human/assistant window")
	}
}

func TestSummaryCreatedOnceThenReused(t *testing.T) {
	model := &fakeModel{response: "They discussed training goals and adjusted the weekly schedule."}
	mgr, _ := newTestManager(t, model)
	ctx := context.Background()

	// 10 pairs = 20 turns: still at the threshold, no summary yet.
	for i := 0; i < 10; i++ {
		if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleFitnessTrainer,
			fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), false); err != nil {
			t.Fatalf("record exchange %d: %v", i, err)
		}
	}
	cc, err := mgr.AssembleContext(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("assemble context: %v", err)
	}
	if cc.Summary != "" {
		t.Fatalf("expected no summary at threshold, got %q", cc.Summary)
	}
	if model.callCount() != 0 {
		t.Fatalf("expected no model calls at threshold, got %d", model.callCount())
	}

	// One more pair crosses the threshold.
	if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleFitnessTrainer, "question 10", "answer 10", false); err != nil {
		t.Fatalf("record exchange: %v", err)
	}
	cc, err = mgr.AssembleContext(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("assemble context: %v", err)
	}
	if cc.Summary != model.response {
		t.Fatalf("expected generated summary, got %q", cc.Summary)
	}
	if model.callCount() != 1 {
		t.Fatalf("expected one model call, got %d", model.callCount())
	}

	// The persisted summary is reused without another model call.
	cc, err = mgr.AssembleContext(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("assemble context: %v", err)
	}
	if cc.Summary != model.response {
		t.Fatalf("expected persisted summary, got %q", cc.Summary)
	}
	if model.callCount() != 1 {
		t.Fatalf("expected summary reuse without a model call, got %d calls", model.callCount())
	}
}

func TestSummaryFailureDegradesToEmpty(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("model unavailable")}
	mgr, _ := newTestManager(t, model)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleNutritionist,
			fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), false); err != nil {
			t.Fatalf("record exchange %d: %v", i, err)
		}
	}

	cc, err := mgr.AssembleContext(ctx, 7, domain.RoleNutritionist)
	if err != nil {
		t.Fatalf("assemble context: %v", err)
	}
	if cc.Summary != "" {
		t.Fatalf("expected empty summary on model failure, got %q", cc.Summary)
	}
	if len(cc.RecentMessages) != 20 {
		t.Fatalf("recent window must survive summary failure, got %d messages", len(cc.RecentMessages))
	}
}

func TestHistoryPairsTurnsWithoutCreatingSessions(t *testing.T) {
	mgr, repo := newTestManager(t, nil)
	ctx := context.Background()

	pairs, err := mgr.History(ctx, 7, domain.RoleFitnessTrainer, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected empty history, got %d pairs", len(pairs))
	}
	session, err := repo.GetActiveSession(ctx, 7, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("get active session: %v", err)
	}
	if session != nil {
		t.Fatalf("history lookup must not create a session, got %+v", session)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleFitnessTrainer,
			fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), i == 2); err != nil {
			t.Fatalf("record exchange %d: %v", i, err)
		}
	}

	pairs, err = mgr.History(ctx, 7, domain.RoleFitnessTrainer, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Human != "question 1" || pairs[0].AI != "answer 1" {
		t.Fatalf("unexpected first pair %+v", pairs[0])
	}
	if !pairs[1].WasPlanUpdate {
		t.Fatal("expected last pair to carry the plan-update flag")
	}
}

func TestClearRetiresSessionAndNextChatStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	first, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleHealthAdvisor)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if _, _, err := mgr.RecordExchange(ctx, 7, domain.RoleHealthAdvisor, "hello", "hi", false); err != nil {
		t.Fatalf("record exchange: %v", err)
	}

	if err := mgr.Clear(ctx, 7, domain.RoleHealthAdvisor); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Clearing again is a no-op.
	if err := mgr.Clear(ctx, 7, domain.RoleHealthAdvisor); err != nil {
		t.Fatalf("second clear: %v", err)
	}

	fresh, err := mgr.GetOrCreateSession(ctx, 7, domain.RoleHealthAdvisor)
	if err != nil {
		t.Fatalf("fresh session: %v", err)
	}
	if fresh.ID == first.ID {
		t.Fatal("expected a fresh session id after clear")
	}
	if fresh.MessageCount != 0 {
		t.Fatalf("expected empty fresh session, got %d messages", fresh.MessageCount)
	}
}

func TestAnalyticsForUnknownPairIsNil(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	analytics, err := mgr.Analytics(context.Background(), 404, domain.RoleFitnessTrainer)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics != nil {
		t.Fatalf("expected nil analytics for unknown pair, got %+v", analytics)
	}
}
