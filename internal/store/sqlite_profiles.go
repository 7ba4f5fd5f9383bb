package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
)

// GetUser retrieves a user by id, or (nil, nil) when unknown.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	var age sql.NullInt64
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, age, created_at FROM users WHERE id = ?`, userID,
	).Scan(&user.ID, &user.FirstName, &age, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Age = int(age.Int64)
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateUser inserts a user record and returns its id. When user.ID is set
// the record keeps that id, which lets callers bring external identifiers.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now()

	var res sql.Result
	var err error
	if user.ID != 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO users (id, first_name, age, created_at) VALUES (?, ?, ?, ?)`,
			user.ID, user.FirstName, nullableInt(user.Age), now.Unix(),
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO users (first_name, age, created_at) VALUES (?, ?, ?)`,
			user.FirstName, nullableInt(user.Age), now.Unix(),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	return id, nil
}

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableText(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// GetProfile retrieves the intake profile for a user. A user without a
// profiles row still gets name and age from the users table, with Complete
// left false. Unknown users return (nil, nil).
func (s *SQLiteStore) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	profile := &domain.Profile{
		UserID: user.ID,
		Name:   user.FirstName,
		Age:    user.Age,
	}

	query := `
		SELECT height, weight, bmi,
		       primary_goal, specific_goals,
		       fitness_level, activity_level, workout_preference, workout_days, workout_duration, available_equipment,
		       previous_injuries, current_injuries, chronic_conditions, medications_supplements,
		       dietary_preferences, allergies, food_restrictions, meals_per_day, cooking_skill, budget,
		       sleep_hours, sleep_quality, stress_level, water_intake, smoking_status, alcohol_consumption
		FROM profiles
		WHERE user_id = ?`

	var height, weight, bmi, sleepHours sql.NullFloat64
	var workoutDays, workoutDuration, mealsPerDay, stressLevel sql.NullInt64
	var primaryGoal, specificGoals sql.NullString
	var fitnessLevel, activityLevel, workoutPreference, equipment sql.NullString
	var prevInjuries, curInjuries, chronicConditions, medications sql.NullString
	var dietPrefs, allergies, restrictions, cookingSkill, budget sql.NullString
	var sleepQuality, waterIntake, smoking, alcohol sql.NullString

	err = s.db.QueryRowContext(ctx, query, userID).Scan(
		&height, &weight, &bmi,
		&primaryGoal, &specificGoals,
		&fitnessLevel, &activityLevel, &workoutPreference, &workoutDays, &workoutDuration, &equipment,
		&prevInjuries, &curInjuries, &chronicConditions, &medications,
		&dietPrefs, &allergies, &restrictions, &mealsPerDay, &cookingSkill, &budget,
		&sleepHours, &sleepQuality, &stressLevel, &waterIntake, &smoking, &alcohol,
	)
	if err == sql.ErrNoRows {
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	profile.Physical = domain.PhysicalStats{Height: height.Float64, Weight: weight.Float64, BMI: bmi.Float64}
	profile.Goals = domain.Goals{Primary: primaryGoal.String, Specific: specificGoals.String}
	profile.Fitness = domain.FitnessProfile{
		Level:         fitnessLevel.String,
		ActivityLevel: activityLevel.String,
		Preference:    workoutPreference.String,
		DaysPerWeek:   int(workoutDays.Int64),
		Duration:      int(workoutDuration.Int64),
		Equipment:     splitList(equipment.String),
	}
	profile.Health = domain.HealthProfile{
		PreviousInjuries:  prevInjuries.String,
		CurrentInjuries:   curInjuries.String,
		ChronicConditions: chronicConditions.String,
		Medications:       medications.String,
	}
	profile.Nutrition = domain.NutritionProfile{
		Preferences:  dietPrefs.String,
		Allergies:    allergies.String,
		Restrictions: restrictions.String,
		MealsPerDay:  int(mealsPerDay.Int64),
		CookingSkill: cookingSkill.String,
		Budget:       budget.String,
	}
	profile.Lifestyle = domain.LifestyleProfile{
		SleepHours:   sleepHours.Float64,
		SleepQuality: sleepQuality.String,
		StressLevel:  int(stressLevel.Int64),
		WaterIntake:  waterIntake.String,
		Smoking:      smoking.String,
		Alcohol:      alcohol.String,
	}
	profile.Complete = profile.Physical.Height > 0 && profile.Physical.Weight > 0

	return profile, nil
}

// SaveProfile upserts the intake profile for a user and refreshes the user
// record's name and age when the profile carries them. BMI is derived from
// height and weight when not supplied.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	if profile.Physical.BMI == 0 && profile.Physical.Height > 0 && profile.Physical.Weight > 0 {
		m := profile.Physical.Height / 100
		profile.Physical.BMI = profile.Physical.Weight / (m * m)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO profiles (
			user_id, height, weight, bmi,
			primary_goal, specific_goals,
			fitness_level, activity_level, workout_preference, workout_days, workout_duration, available_equipment,
			previous_injuries, current_injuries, chronic_conditions, medications_supplements,
			dietary_preferences, allergies, food_restrictions, meals_per_day, cooking_skill, budget,
			sleep_hours, sleep_quality, stress_level, water_intake, smoking_status, alcohol_consumption
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			height = excluded.height, weight = excluded.weight, bmi = excluded.bmi,
			primary_goal = excluded.primary_goal, specific_goals = excluded.specific_goals,
			fitness_level = excluded.fitness_level, activity_level = excluded.activity_level,
			workout_preference = excluded.workout_preference, workout_days = excluded.workout_days,
			workout_duration = excluded.workout_duration, available_equipment = excluded.available_equipment,
			previous_injuries = excluded.previous_injuries, current_injuries = excluded.current_injuries,
			chronic_conditions = excluded.chronic_conditions, medications_supplements = excluded.medications_supplements,
			dietary_preferences = excluded.dietary_preferences, allergies = excluded.allergies,
			food_restrictions = excluded.food_restrictions, meals_per_day = excluded.meals_per_day,
			cooking_skill = excluded.cooking_skill, budget = excluded.budget,
			sleep_hours = excluded.sleep_hours, sleep_quality = excluded.sleep_quality,
			stress_level = excluded.stress_level, water_intake = excluded.water_intake,
			smoking_status = excluded.smoking_status, alcohol_consumption = excluded.alcohol_consumption`

	if _, err := tx.ExecContext(ctx, query,
		profile.UserID,
		nullableFloat(profile.Physical.Height), nullableFloat(profile.Physical.Weight), nullableFloat(profile.Physical.BMI),
		nullableText(profile.Goals.Primary), nullableText(profile.Goals.Specific),
		nullableText(profile.Fitness.Level), nullableText(profile.Fitness.ActivityLevel),
		nullableText(profile.Fitness.Preference), nullableInt(profile.Fitness.DaysPerWeek),
		nullableInt(profile.Fitness.Duration), nullableText(joinList(profile.Fitness.Equipment)),
		nullableText(profile.Health.PreviousInjuries), nullableText(profile.Health.CurrentInjuries),
		nullableText(profile.Health.ChronicConditions), nullableText(profile.Health.Medications),
		nullableText(profile.Nutrition.Preferences), nullableText(profile.Nutrition.Allergies),
		nullableText(profile.Nutrition.Restrictions), nullableInt(profile.Nutrition.MealsPerDay),
		nullableText(profile.Nutrition.CookingSkill), nullableText(profile.Nutrition.Budget),
		nullableFloat(profile.Lifestyle.SleepHours), nullableText(profile.Lifestyle.SleepQuality),
		nullableInt(profile.Lifestyle.StressLevel), nullableText(profile.Lifestyle.WaterIntake),
		nullableText(profile.Lifestyle.Smoking), nullableText(profile.Lifestyle.Alcohol),
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	if profile.Name != "" || profile.Age > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET first_name = COALESCE(?, first_name), age = COALESCE(?, age) WHERE id = ?`,
			nullableText(profile.Name), nullableInt(profile.Age), profile.UserID,
		); err != nil {
			return fmt.Errorf("refresh user record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile transaction: %w", err)
	}

	profile.Complete = profile.Physical.Height > 0 && profile.Physical.Weight > 0
	return nil
}

func nullableFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
