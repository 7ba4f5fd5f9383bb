//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

func putProfile(t *testing.T, h http.Handler, userID int64) domain.Profile {
	t.Helper()
	rr := doJSON(t, h, http.MethodPut, "/api/profile", userID, domain.Profile{
		Name: "Sara",
		Age:  31,
		Physical: domain.PhysicalStats{
			Height: 170,
			Weight: 65,
		},
		Goals: domain.Goals{Primary: "muscle gain"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("profile PUT failed: %d %s", rr.Code, rr.Body.String())
	}
	var saved domain.Profile
	decodeBody(t, rr, &saved)
	return saved
}

func TestProfileRoundTripDerivesBMI(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &fakeModel{response: "ok"}, 100)

	saved := putProfile(t, h, 7)
	if saved.UserID != 7 {
		t.Fatalf("expected profile owned by caller, got user %d", saved.UserID)
	}
	if saved.Name != "Sara" || saved.Age != 31 {
		t.Fatalf("unexpected identity fields: %q %d", saved.Name, saved.Age)
	}
	if !saved.Complete {
		t.Fatal("expected profile with physical stats to be complete")
	}
	// 65kg at 1.70m.
	if saved.Physical.BMI < 22.4 || saved.Physical.BMI > 22.6 {
		t.Fatalf("expected derived BMI near 22.5, got %v", saved.Physical.BMI)
	}

	rr := doJSON(t, h, http.MethodGet, "/api/profile", 7, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile GET failed: %d", rr.Code)
	}
	var again domain.Profile
	decodeBody(t, rr, &again)
	if again.Physical.BMI != saved.Physical.BMI {
		t.Fatalf("BMI changed across reads: %v vs %v", again.Physical.BMI, saved.Physical.BMI)
	}
}

func TestFreshUserGetsEmptyProfile(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &fakeModel{response: "ok"}, 100)

	// The identity middleware provisions the user row on first sight, so a
	// fresh caller reads an empty, incomplete profile rather than a 404.
	rr := doJSON(t, h, http.MethodGet, "/api/profile", 42, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var p domain.Profile
	decodeBody(t, rr, &p)
	if p.UserID != 42 || p.Name != "" || p.Complete {
		t.Fatalf("expected empty incomplete profile, got %+v", p)
	}
}

func TestPlanGenerationAndCurrentPlan(t *testing.T) {
	t.Parallel()
	planText := "## Week 1\n1. Squats 3x8\n2. Bench press 3x8\n3. Rows 3x10"
	model := &fakeModel{response: planText}
	h := newTestRouter(t, model, 100)

	rr := doJSON(t, h, http.MethodGet, "/api/plans/FitnessTrainer", 7, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for missing plan, got %d", rr.Code)
	}
	var current domain.CurrentPlan
	decodeBody(t, rr, &current)
	if current.HasPlan {
		t.Fatal("expected no plan before generation")
	}
	if current.Message != domain.NoPlanMessage {
		t.Fatalf("unexpected no-plan message: %q", current.Message)
	}

	putProfile(t, h, 7)

	rr = doJSON(t, h, http.MethodPost, "/api/plans/generate", 7, map[string][]string{
		"roles": {"FitnessTrainer"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate failed: %d %s", rr.Code, rr.Body.String())
	}
	var gen struct {
		Generated map[string]struct {
			PlanID int64 `json:"plan_id"`
		} `json:"generated"`
		Failed []string `json:"failed"`
	}
	decodeBody(t, rr, &gen)
	if len(gen.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", gen.Failed)
	}
	if gen.Generated["FitnessTrainer"].PlanID == 0 {
		t.Fatalf("expected a plan id, got %+v", gen.Generated)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/plans/FitnessTrainer", 7, nil)
	decodeBody(t, rr, &current)
	if !current.HasPlan || current.Version != 1 || current.IsUpdated {
		t.Fatalf("expected base plan as version 1, got %+v", current)
	}
	if current.Content != planText {
		t.Fatalf("unexpected plan content: %q", current.Content)
	}

	// Revision history is empty until a conversation updates the plan.
	rr = doJSON(t, h, http.MethodGet, "/api/plans/FitnessTrainer/versions", 7, nil)
	var versions struct {
		Versions []map[string]interface{} `json:"versions"`
		Count    int                      `json:"count"`
	}
	decodeBody(t, rr, &versions)
	if versions.Count != 0 {
		t.Fatalf("expected no revisions yet, got %d", versions.Count)
	}
}

func TestGenerateDefaultsToAllPlanRoles(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &fakeModel{response: "a sensible plan"}, 100)

	// Without a profile every role fails and the endpoint reports it.
	rr := doJSON(t, h, http.MethodPost, "/api/plans/generate", 99, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without profile, got %d", rr.Code)
	}

	putProfile(t, h, 99)

	rr = doJSON(t, h, http.MethodPost, "/api/plans/generate", 99, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("generate failed: %d %s", rr.Code, rr.Body.String())
	}
	var gen struct {
		Generated map[string]interface{} `json:"generated"`
	}
	decodeBody(t, rr, &gen)
	if len(gen.Generated) != len(domain.PlanRoles()) {
		t.Fatalf("expected plans for all plan roles, got %v", gen.Generated)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/plans/generate", 99, map[string][]string{
		"roles": {"Wizard"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", rr.Code)
	}
}

func TestConversationalUpdateShowsUpInVersions(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("Here's your updated plan with the strength focus you asked for.\n\n")
	for week := 1; week <= 4; week++ {
		fmt.Fprintf(&b, "## Week %d\n", week)
		b.WriteString("1. Squats 4x6 at a controlled tempo, adding load only when every repetition stays clean.\n")
		b.WriteString("2. Bench press 4x6 with a full pause on the chest and a spotter for the heaviest sets.\n")
		b.WriteString("3. Rows 4x8 plus core work to finish, keeping the lower back neutral throughout.\n")
		b.WriteString("Rest 2-3 minutes between heavy sets.\n\n")
	}
	model := &fakeModel{response: b.String()}
	h := newTestRouter(t, model, 100)

	rr := doJSON(t, h, http.MethodPost, "/api/chat", 5, ChatRequest{
		Role:    "FitnessTrainer",
		Message: "Please change my workout plan to focus on strength",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("chat failed: %d %s", rr.Code, rr.Body.String())
	}
	var result domain.ChatResult
	decodeBody(t, rr, &result)
	if !result.ContainsPlanUpdate {
		t.Fatal("expected the exchange to be detected as a plan update")
	}

	var current domain.CurrentPlan
	rr = doJSON(t, h, http.MethodGet, "/api/plans/FitnessTrainer", 5, nil)
	decodeBody(t, rr, &current)
	if !current.HasPlan || !current.IsUpdated || current.Version != 1 {
		t.Fatalf("expected revision 1 as current plan, got %+v", current)
	}
	if !strings.HasPrefix(current.LastModification, "User requested: Please change my workout plan") {
		t.Fatalf("unexpected modification summary: %q", current.LastModification)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/plans/FitnessTrainer/versions", 5, nil)
	var versions struct {
		Versions []struct {
			Version   int  `json:"version"`
			IsCurrent bool `json:"is_current"`
		} `json:"versions"`
		Count int `json:"count"`
	}
	decodeBody(t, rr, &versions)
	if versions.Count != 1 {
		t.Fatalf("expected one revision, got %d", versions.Count)
	}
	if versions.Versions[0].Version != 1 || !versions.Versions[0].IsCurrent {
		t.Fatalf("unexpected revision entry: %+v", versions.Versions[0])
	}
}
