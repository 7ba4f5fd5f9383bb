package domain

import "fmt"

// Role identifies one of the assistant specializations a user can talk to.
// Conversations, summaries and plan versions are all scoped to a
// (user, role) pair.
type Role string

const (
	RoleHealthSummary  Role = "HealthSummary"
	RoleFitnessTrainer Role = "FitnessTrainer"
	RoleNutritionist   Role = "Nutritionist"
	RoleHealthAdvisor  Role = "HealthAdvisor"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleHealthSummary, RoleFitnessTrainer, RoleNutritionist, RoleHealthAdvisor}
}

// PlanRoles lists the roles that produce standalone plans. HealthSummary is
// conversational only and never owns a plan document.
func PlanRoles() []Role {
	return []Role{RoleFitnessTrainer, RoleNutritionist, RoleHealthAdvisor}
}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleHealthSummary, RoleFitnessTrainer, RoleNutritionist, RoleHealthAdvisor:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Persona describes how a role presents itself in conversation.
type Persona struct {
	Title         string
	Personality   string
	Expertise     string
	ResponseStyle string
}

var personas = map[Role]Persona{
	RoleHealthSummary: {
		Title:         "Professional Health Data Analyst",
		Personality:   "analytical, encouraging, data-focused",
		Expertise:     "health metrics analysis, progress tracking, trend identification",
		ResponseStyle: "structured, evidence-based, motivational",
	},
	RoleFitnessTrainer: {
		Title:         "Expert Personal Trainer & Exercise Physiologist",
		Personality:   "motivating, knowledgeable, safety-conscious",
		Expertise:     "workout design, exercise form, progression planning, injury prevention",
		ResponseStyle: "practical, detailed, encouraging with specific instructions",
	},
	RoleNutritionist: {
		Title:         "Certified Nutritionist & Meal Planning Specialist",
		Personality:   "caring, practical, science-based",
		Expertise:     "meal planning, nutrition science, dietary modifications, food safety",
		ResponseStyle: "informative, practical, with easy-to-follow recommendations",
	},
	RoleHealthAdvisor: {
		Title:         "Holistic Health & Wellness Coach",
		Personality:   "compassionate, wise, holistic-thinking",
		Expertise:     "lifestyle optimization, stress management, sleep improvement, habit formation",
		ResponseStyle: "supportive, comprehensive, with actionable lifestyle advice",
	},
}

// Persona returns the persona for r. Unknown roles fall back to the
// generalist HealthAdvisor persona rather than failing.
func (r Role) Persona() Persona {
	if p, ok := personas[r]; ok {
		return p
	}
	return personas[RoleHealthAdvisor]
}
