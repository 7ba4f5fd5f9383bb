package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
)

// CurrentPlanVersion retrieves the current plan version for a (user, role)
// pair, or (nil, nil) when none is current.
func (s *SQLiteStore) CurrentPlanVersion(ctx context.Context, userID int64, role domain.Role) (*domain.PlanVersion, error) {
	query := `
		SELECT id, user_id, agent_role, version_number, updated_plan, modification_summary, origin_turn_id, base_plan_id, is_current, created_at
		FROM plan_versions
		WHERE user_id = ? AND agent_role = ? AND is_current = 1
		ORDER BY created_at DESC, version_number DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, userID, string(role))
	version, err := scanPlanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan current plan version: %w", err)
	}
	return version, nil
}

// ListPlanVersions returns all plan versions for a (user, role) pair, newest
// version first.
func (s *SQLiteStore) ListPlanVersions(ctx context.Context, userID int64, role domain.Role) ([]domain.PlanVersion, error) {
	query := `
		SELECT id, user_id, agent_role, version_number, updated_plan, modification_summary, origin_turn_id, base_plan_id, is_current, created_at
		FROM plan_versions
		WHERE user_id = ? AND agent_role = ?
		ORDER BY version_number DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, string(role))
	if err != nil {
		return nil, fmt.Errorf("query plan versions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close plan version rows", "error", closeErr)
		}
	}()

	var versions []domain.PlanVersion
	for rows.Next() {
		version, err := scanPlanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan version row: %w", err)
		}
		versions = append(versions, *version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan versions: %w", err)
	}

	return versions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlanVersion(row rowScanner) (*domain.PlanVersion, error) {
	var v domain.PlanVersion
	var role string
	var modSummary sql.NullString
	var originTurnID, basePlanID sql.NullInt64
	var current int
	var createdAt int64

	err := row.Scan(
		&v.ID, &v.UserID, &role, &v.Version, &v.Content,
		&modSummary, &originTurnID, &basePlanID, &current, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	v.Role = domain.Role(role)
	v.ModificationSummary = modSummary.String
	v.OriginTurnID = originTurnID.Int64
	if basePlanID.Valid {
		id := basePlanID.Int64
		v.BasePlanID = &id
	}
	v.IsCurrent = current != 0
	v.CreatedAt = time.Unix(createdAt, 0)

	return &v, nil
}

// SavePlanRevision persists rev as the next plan version and makes it the
// single current one. The version number, lineage, id and timestamp are
// assigned inside the transaction and written back into rev.
func (s *SQLiteStore) SavePlanRevision(ctx context.Context, rev *domain.PlanVersion) error {
	maxRetries := 5
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := s.savePlanRevisionOnce(ctx, rev)
		if err == nil {
			return nil
		}
		lastErr = err

		if shared.IsSQLiteUniqueViolation(err) || shared.IsSQLiteConflictError(err) {
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i)
				slog.Debug("SavePlanRevision lost a version race, retrying",
					"user_id", rev.UserID,
					"agent_role", rev.Role,
					"attempt", i+1,
					"delay", delay)
				time.Sleep(delay)
				continue
			}
		}

		return fmt.Errorf("save plan revision: %w", err)
	}

	return fmt.Errorf("save plan revision after %d attempts: %w", maxRetries, lastErr)
}

func (s *SQLiteStore) savePlanRevisionOnce(ctx context.Context, rev *domain.PlanVersion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revision transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE plan_versions SET is_current = 0 WHERE user_id = ? AND agent_role = ? AND is_current = 1`,
		rev.UserID, string(rev.Role),
	); err != nil {
		return fmt.Errorf("unset current plan: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM plan_versions WHERE user_id = ? AND agent_role = ?`,
		rev.UserID, string(rev.Role),
	).Scan(&next); err != nil {
		return fmt.Errorf("compute next version number: %w", err)
	}

	// Link the revision back to the base plan it descends from, if any.
	var basePlanID sql.NullInt64
	if rev.BasePlanID != nil {
		basePlanID = sql.NullInt64{Int64: *rev.BasePlanID, Valid: true}
	} else {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM agent_history WHERE user_id = ? AND agent_role = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
			rev.UserID, string(rev.Role),
		).Scan(&basePlanID.Int64)
		if err == nil {
			basePlanID.Valid = true
		} else if err != sql.ErrNoRows {
			return fmt.Errorf("resolve base plan: %w", err)
		}
	}

	var modSummary interface{}
	if rev.ModificationSummary != "" {
		modSummary = rev.ModificationSummary
	}
	var originTurnID interface{}
	if rev.OriginTurnID != 0 {
		originTurnID = rev.OriginTurnID
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO plan_versions (user_id, agent_role, version_number, updated_plan, modification_summary, origin_turn_id, base_plan_id, is_current, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		rev.UserID, string(rev.Role), next, rev.Content,
		modSummary, originTurnID, basePlanID, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert plan version: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("plan version id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision transaction: %w", err)
	}

	rev.ID = id
	rev.Version = next
	if basePlanID.Valid {
		linked := basePlanID.Int64
		rev.BasePlanID = &linked
	}
	rev.IsCurrent = true
	rev.CreatedAt = now
	return nil
}

// InvalidateCurrentPlans unsets the current flag on every plan version of a
// (user, role) pair. Used when a session is cleared so the next conversation
// starts from the base plan.
func (s *SQLiteStore) InvalidateCurrentPlans(ctx context.Context, userID int64, role domain.Role) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE plan_versions SET is_current = 0 WHERE user_id = ? AND agent_role = ? AND is_current = 1`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("invalidate current plans: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		slog.Debug("invalidated current plan versions", "user_id", userID, "agent_role", role, "count", rows)
	}

	return nil
}

// LatestBasePlan retrieves the most recent base plan generated for a
// (user, role) pair, or (nil, nil) when none exists.
func (s *SQLiteStore) LatestBasePlan(ctx context.Context, userID int64, role domain.Role) (*domain.BasePlan, error) {
	query := `
		SELECT id, user_id, agent_role, recommendation, created_at
		FROM agent_history
		WHERE user_id = ? AND agent_role = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var plan domain.BasePlan
	var role2 string
	var createdAt int64

	err := s.db.QueryRowContext(ctx, query, userID, string(role)).Scan(
		&plan.ID, &plan.UserID, &role2, &plan.Recommendation, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan base plan row: %w", err)
	}

	plan.Role = domain.Role(role2)
	plan.CreatedAt = time.Unix(createdAt, 0)
	return &plan, nil
}

// InsertBasePlan records a generated base plan and returns its id.
func (s *SQLiteStore) InsertBasePlan(ctx context.Context, plan *domain.BasePlan) (int64, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_history (user_id, agent_role, recommendation, created_at) VALUES (?, ?, ?, ?)`,
		plan.UserID, string(plan.Role), plan.Recommendation, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert base plan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("base plan id: %w", err)
	}

	plan.ID = id
	plan.CreatedAt = now
	return id, nil
}
