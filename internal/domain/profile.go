package domain

import (
	"fmt"
	"strings"
)

// Profile is the intake questionnaire for a user. All sections are optional;
// prompt construction degrades to whatever is present.
type Profile struct {
	UserID    int64            `json:"user_id"`
	Name      string           `json:"name"`
	Age       int              `json:"age,omitempty"`
	Complete  bool             `json:"complete"` // true once physical stats have been recorded
	Physical  PhysicalStats    `json:"physical"`
	Goals     Goals            `json:"goals"`
	Fitness   FitnessProfile   `json:"fitness"`
	Health    HealthProfile    `json:"health"`
	Nutrition NutritionProfile `json:"nutrition"`
	Lifestyle LifestyleProfile `json:"lifestyle"`
}

// PhysicalStats holds body measurements.
type PhysicalStats struct {
	Height float64 `json:"height_cm,omitempty"`
	Weight float64 `json:"weight_kg,omitempty"`
	BMI    float64 `json:"bmi,omitempty"`
}

// Goals holds the user's stated objectives.
type Goals struct {
	Primary  string `json:"primary,omitempty"`
	Specific string `json:"specific,omitempty"`
}

// FitnessProfile holds training preferences and capacity.
type FitnessProfile struct {
	Level         string   `json:"level,omitempty"`
	ActivityLevel string   `json:"activity_level,omitempty"`
	Preference    string   `json:"preference,omitempty"`
	DaysPerWeek   int      `json:"days_per_week,omitempty"`
	Duration      int      `json:"session_minutes,omitempty"` // minutes per session
	Equipment     []string `json:"equipment,omitempty"`
}

// HealthProfile holds medical constraints relevant to plan safety.
type HealthProfile struct {
	PreviousInjuries  string `json:"previous_injuries,omitempty"`
	CurrentInjuries   string `json:"current_injuries,omitempty"`
	ChronicConditions string `json:"chronic_conditions,omitempty"`
	Medications       string `json:"medications,omitempty"`
}

// NutritionProfile holds dietary preferences and constraints.
type NutritionProfile struct {
	Preferences  string `json:"preferences,omitempty"`
	Allergies    string `json:"allergies,omitempty"`
	Restrictions string `json:"restrictions,omitempty"`
	MealsPerDay  int    `json:"meals_per_day,omitempty"`
	CookingSkill string `json:"cooking_skill,omitempty"`
	Budget       string `json:"budget,omitempty"`
}

// LifestyleProfile holds daily-routine factors.
type LifestyleProfile struct {
	SleepHours   float64 `json:"sleep_hours,omitempty"`
	SleepQuality string  `json:"sleep_quality,omitempty"`
	StressLevel  int     `json:"stress_level,omitempty"` // 1..10
	WaterIntake  string  `json:"water_intake,omitempty"`
	Smoking      string  `json:"smoking,omitempty"`
	Alcohol      string  `json:"alcohol,omitempty"`
}

// Facts renders the one-line profile summary used in conversation prompts.
func (p *Profile) Facts() string {
	if p == nil || p.Name == "" {
		return "User: Unknown User"
	}
	line := "User: " + p.Name
	if !p.Complete {
		return line
	}
	if p.Physical.BMI > 0 {
		line += fmt.Sprintf(" | Age: %d | BMI: %.1f", p.Age, p.Physical.BMI)
	}
	if p.Goals.Primary != "" {
		line += " | Goal: " + p.Goals.Primary
	}
	return line
}

// Restrictions joins injury and condition fields into the single free-text
// constraint line plan templates expect.
func (p *Profile) RestrictionsText() string {
	var parts []string
	for _, s := range []string{p.Health.CurrentInjuries, p.Health.PreviousInjuries, p.Health.ChronicConditions} {
		if s != "" && !strings.EqualFold(s, "none") {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

// EquipmentText renders available equipment for plan templates.
func (p *Profile) EquipmentText() string {
	if len(p.Fitness.Equipment) == 0 {
		return "none"
	}
	return strings.Join(p.Fitness.Equipment, ", ")
}

// StressWord maps the 1..10 stress scale to the descriptive word used in
// prompts. Out-of-range values read as moderate.
func StressWord(level int) string {
	switch {
	case level <= 0:
		return "unknown"
	case level == 1:
		return "very low"
	case level == 2:
		return "low"
	case level == 3:
		return "mild"
	case level <= 6:
		return "moderate"
	case level <= 8:
		return "high"
	case level == 9:
		return "very high"
	case level == 10:
		return "extreme"
	default:
		return "moderate"
	}
}
