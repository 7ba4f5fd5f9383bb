package plan

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

// Safe defaults applied when the intake profile leaves a slot empty.
const (
	defaultPlanWeeks     = 4
	defaultCaloricTarget = 2000
)

// templateParams is the flattened view of a profile that plan templates
// render from. Every field is pre-defaulted; templates never see empty slots.
type templateParams struct {
	Name          string
	Goals         string
	Duration      int
	FitnessLevel  string
	Equipment     string
	WorkoutDays   int
	WorkoutTime   int
	Restrictions  string
	DietPrefs     string
	Allergies     string
	CaloricTarget int
	Lifestyle     string
	SleepQuality  string
	StressLevel   string
	Habits        string
}

var planTemplates = map[domain.Role]*template.Template{
	domain.RoleFitnessTrainer: template.Must(template.New("fitness_trainer").Parse(
		`As a professional fitness trainer, create a personalized {{.Duration}}-week workout plan for {{.Name}}.

Client Profile:
- Goals: {{.Goals}}
- Fitness Level: {{.FitnessLevel}}
- Available Equipment: {{.Equipment}}
- Workout Frequency: {{.WorkoutDays}} days/week
- Session Duration: {{.WorkoutTime}} minutes
- Restrictions: {{.Restrictions}}

Required Output:
1. Warm-up routine (5-10 minutes)
2. Main exercises (include sets/reps/rest periods)
3. Cool-down stretches
4. Progression plan for {{.Duration}} weeks
5. Safety modifications for {{.Restrictions}}`)),

	domain.RoleNutritionist: template.Must(template.New("nutritionist").Parse(
		`As a certified nutritionist, create a {{.Duration}}-week meal plan for {{.Name}}.

Client Profile:
- Goals: {{.Goals}}
- Dietary Preferences: {{.DietPrefs}}
- Allergies: {{.Allergies}}
- Daily Caloric Target: {{.CaloricTarget}}
- Lifestyle: {{.Lifestyle}}

Required Output:
1. Daily meal breakdown (breakfast, lunch, dinner, snacks)
2. Macronutrient distribution
3. Weekly grocery list
4. Meal prep tips
5. Hydration guidelines`)),

	domain.RoleHealthAdvisor: template.Must(template.New("health_advisor").Parse(
		`As a holistic health advisor, provide wellness recommendations for {{.Name}}.

Client Profile:
- Goals: {{.Goals}}
- Sleep Quality: {{.SleepQuality}}
- Stress Level: {{.StressLevel}}
- Habits: {{.Habits}}
- Lifestyle: {{.Lifestyle}}

Required Output:
1. Sleep improvement strategies
2. Stress management techniques
3. Habit optimization suggestions
4. Daily routine recommendations
5. Preventative health measures`)),
}

// renderPrompt fills the role's plan template from a profile.
func renderPrompt(role domain.Role, profile *domain.Profile) (string, error) {
	tmpl, ok := planTemplates[role]
	if !ok {
		return "", fmt.Errorf("role %q does not generate plans", role)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, paramsFromProfile(profile)); err != nil {
		return "", fmt.Errorf("render %s template: %w", role, err)
	}
	return b.String(), nil
}

func paramsFromProfile(p *domain.Profile) templateParams {
	params := templateParams{
		Name:          p.Name,
		Goals:         orDefault(p.Goals.Primary, "general wellness"),
		Duration:      defaultPlanWeeks,
		FitnessLevel:  orDefault(p.Fitness.Level, "beginner"),
		Equipment:     p.EquipmentText(),
		WorkoutDays:   orDefaultInt(p.Fitness.DaysPerWeek, 3),
		WorkoutTime:   orDefaultInt(p.Fitness.Duration, 30),
		Restrictions:  p.RestrictionsText(),
		DietPrefs:     orDefault(p.Nutrition.Preferences, "balanced"),
		Allergies:     orDefault(p.Nutrition.Allergies, "none"),
		CaloricTarget: defaultCaloricTarget,
		Lifestyle:     orDefault(p.Fitness.ActivityLevel, "moderately active"),
		SleepQuality:  sleepText(p),
		StressLevel:   "moderate",
		Habits:        habitsText(p),
	}
	if p.Lifestyle.StressLevel != 0 {
		params.StressLevel = domain.StressWord(p.Lifestyle.StressLevel)
	}
	return params
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func orDefaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func sleepText(p *domain.Profile) string {
	if p.Lifestyle.SleepQuality != "" {
		return p.Lifestyle.SleepQuality
	}
	if p.Lifestyle.SleepHours > 0 {
		return fmt.Sprintf("%.0f hours", p.Lifestyle.SleepHours)
	}
	return "7 hours"
}

func habitsText(p *domain.Profile) string {
	var parts []string
	if isReported(p.Lifestyle.Smoking) {
		parts = append(parts, "smoking: "+p.Lifestyle.Smoking)
	}
	if isReported(p.Lifestyle.Alcohol) {
		parts = append(parts, "alcohol: "+p.Lifestyle.Alcohol)
	}
	if len(parts) == 0 {
		return "none reported"
	}
	return strings.Join(parts, ", ")
}

func isReported(s string) bool {
	return s != "" && !strings.EqualFold(s, "no") && !strings.EqualFold(s, "none")
}
