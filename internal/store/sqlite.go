package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each in-memory connection is its own database; keep a single one.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		age INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id INTEGER PRIMARY KEY,
		height REAL, weight REAL, bmi REAL,
		primary_goal TEXT, specific_goals TEXT,
		fitness_level TEXT, activity_level TEXT, workout_preference TEXT,
		workout_days INTEGER, workout_duration INTEGER, available_equipment TEXT,
		previous_injuries TEXT, current_injuries TEXT, chronic_conditions TEXT,
		medications_supplements TEXT,
		dietary_preferences TEXT, allergies TEXT, food_restrictions TEXT,
		meals_per_day INTEGER, cooking_skill TEXT, budget TEXT,
		sleep_hours REAL, sleep_quality TEXT, stress_level INTEGER,
		water_intake TEXT, smoking_status TEXT, alcohol_consumption TEXT
	);

	CREATE TABLE IF NOT EXISTS agent_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		agent_role TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agent_history_pair ON agent_history(user_id, agent_role, created_at);

	CREATE TABLE IF NOT EXISTS conversation_sessions (
		session_id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		agent_role TEXT NOT NULL,
		session_name TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_pair ON conversation_sessions(user_id, agent_role, status, last_activity);

	CREATE TABLE IF NOT EXISTS conversation_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		agent_role TEXT NOT NULL,
		message_type TEXT NOT NULL,
		content TEXT NOT NULL,
		turn_order INTEGER NOT NULL,
		contains_plan_update INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(session_id, turn_order)
	);

	CREATE TABLE IF NOT EXISTS context_references (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn_id INTEGER NOT NULL,
		reference_type TEXT NOT NULL,
		reference_id INTEGER,
		reference_text TEXT,
		confidence_score REAL NOT NULL DEFAULT 0.5,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_references_turn ON context_references(turn_id);

	CREATE TABLE IF NOT EXISTS memory_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		agent_role TEXT NOT NULL,
		summary_type TEXT NOT NULL,
		summary_content TEXT NOT NULL,
		start_order INTEGER NOT NULL DEFAULT 0,
		end_order INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_session ON memory_summaries(session_id, is_active);

	CREATE TABLE IF NOT EXISTS plan_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		agent_role TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		updated_plan TEXT NOT NULL,
		modification_summary TEXT,
		origin_turn_id INTEGER,
		base_plan_id INTEGER,
		is_current INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, agent_role, version_number)
	);
	CREATE INDEX IF NOT EXISTS idx_plan_versions_current ON plan_versions(user_id, agent_role, is_current);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetActiveSession retrieves the most recently active session for a
// (user, role) pair.
func (s *SQLiteStore) GetActiveSession(ctx context.Context, userID int64, role domain.Role) (*domain.Session, error) {
	query := `
		SELECT session_id, user_id, agent_role, session_name, status, message_count, created_at, last_activity
		FROM conversation_sessions
		WHERE user_id = ? AND agent_role = ? AND status = 'active'
		ORDER BY last_activity DESC
		LIMIT 1`

	return s.scanSessionRow(s.db.QueryRowContext(ctx, query, userID, string(role)))
}

// GetSession retrieves a session by its identifier.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT session_id, user_id, agent_role, session_name, status, message_count, created_at, last_activity
		FROM conversation_sessions
		WHERE session_id = ?`

	return s.scanSessionRow(s.db.QueryRowContext(ctx, query, sessionID))
}

func (s *SQLiteStore) scanSessionRow(row *sql.Row) (*domain.Session, error) {
	var session domain.Session
	var role, status string
	var name sql.NullString
	var createdAt, lastActivity int64

	err := row.Scan(
		&session.ID, &session.UserID, &role, &name,
		&status, &session.MessageCount, &createdAt, &lastActivity,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.Role = domain.Role(role)
	session.Name = name.String
	session.Status = domain.SessionStatus(status)
	session.CreatedAt = time.Unix(createdAt, 0)
	session.LastActivity = time.Unix(lastActivity, 0)

	return &session, nil
}

// CreateSession inserts a new session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO conversation_sessions (session_id, user_id, agent_role, session_name, status, message_count, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var name interface{}
	if session.Name != "" {
		name = session.Name
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, string(session.Role), name,
		string(session.Status), session.MessageCount,
		session.CreatedAt.Unix(), session.LastActivity.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// TouchSession refreshes a session's last_activity timestamp.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE conversation_sessions SET last_activity = ? WHERE session_id = ?`
	result, err := s.db.ExecContext(ctx, query, at.Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("TouchSession affected 0 rows", "session_id", sessionID)
	}

	return nil
}

// ClearSession marks the session cleared and deletes its conversation data.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) ClearSession(ctx context.Context, sessionID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.clearSessionOnce(ctx, sessionID)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) {
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i) // exponential backoff: 100ms, 200ms, 400ms
				slog.Debug("ClearSession hit a locked database, retrying",
					"session_id", sessionID,
					"attempt", i+1,
					"delay", delay)
				time.Sleep(delay)
				continue
			}
		}

		return fmt.Errorf("clear session %s after %d attempts: %w", sessionID, i+1, err)
	}

	return nil
}

func (s *SQLiteStore) clearSessionOnce(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversation_sessions SET status = 'cleared', last_activity = ? WHERE session_id = ? AND status != 'cleared'`,
		time.Now().Unix(), sessionID,
	); err != nil {
		return fmt.Errorf("mark session cleared: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM context_references WHERE turn_id IN (SELECT id FROM conversation_turns WHERE session_id = ?)`,
		sessionID,
	); err != nil {
		return fmt.Errorf("delete context references: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_summaries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear transaction: %w", err)
	}
	return nil
}

// AppendTurnPair atomically persists a user/assistant exchange at the next
// two order numbers. Two writers racing for the same numbers are separated by
// the UNIQUE(session_id, turn_order) constraint; the loser recomputes and
// retries.
func (s *SQLiteStore) AppendTurnPair(ctx context.Context, sessionID string, userID int64, role domain.Role, userMessage, assistantMessage string, planUpdate bool) (*domain.Turn, *domain.Turn, error) {
	maxRetries := 5
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		human, assistant, err := s.appendTurnPairOnce(ctx, sessionID, userID, role, userMessage, assistantMessage, planUpdate)
		if err == nil {
			return human, assistant, nil
		}
		lastErr = err

		if shared.IsSQLiteUniqueViolation(err) || shared.IsSQLiteConflictError(err) {
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i)
				slog.Debug("AppendTurnPair lost an ordering race, retrying",
					"session_id", sessionID,
					"attempt", i+1,
					"delay", delay)
				time.Sleep(delay)
				continue
			}
		}

		return nil, nil, fmt.Errorf("append turn pair: %w", err)
	}

	return nil, nil, fmt.Errorf("append turn pair after %d attempts: %w", maxRetries, lastErr)
}

func (s *SQLiteStore) appendTurnPairOnce(ctx context.Context, sessionID string, userID int64, role domain.Role, userMessage, assistantMessage string, planUpdate bool) (*domain.Turn, *domain.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(turn_order), 0) + 1 FROM conversation_turns WHERE session_id = ?`,
		sessionID,
	).Scan(&next); err != nil {
		return nil, nil, fmt.Errorf("compute next turn order: %w", err)
	}

	now := time.Now()
	insert := `
		INSERT INTO conversation_turns (session_id, user_id, agent_role, message_type, content, turn_order, contains_plan_update, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	humanRes, err := tx.ExecContext(ctx, insert,
		sessionID, userID, string(role), string(domain.MessageHuman),
		userMessage, next, 0, now.Unix(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert human turn: %w", err)
	}
	humanID, err := humanRes.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("human turn id: %w", err)
	}

	assistantRes, err := tx.ExecContext(ctx, insert,
		sessionID, userID, string(role), string(domain.MessageAssistant),
		assistantMessage, next+1, boolToInt(planUpdate), now.Unix(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert assistant turn: %w", err)
	}
	assistantID, err := assistantRes.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("assistant turn id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversation_sessions SET message_count = message_count + 2, last_activity = ? WHERE session_id = ?`,
		now.Unix(), sessionID,
	); err != nil {
		return nil, nil, fmt.Errorf("advance message count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit append transaction: %w", err)
	}

	human := &domain.Turn{
		ID: humanID, SessionID: sessionID, UserID: userID, Role: role,
		Type: domain.MessageHuman, Content: userMessage, Order: next, CreatedAt: now,
	}
	assistant := &domain.Turn{
		ID: assistantID, SessionID: sessionID, UserID: userID, Role: role,
		Type: domain.MessageAssistant, Content: assistantMessage, Order: next + 1,
		ContainsPlanUpdate: planUpdate, CreatedAt: now,
	}
	return human, assistant, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecentTurns returns the last limit turns of a session in chronological order.
func (s *SQLiteStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	query := `
		SELECT id, session_id, user_id, agent_role, message_type, content, turn_order, contains_plan_update, created_at
		FROM conversation_turns
		WHERE session_id = ?
		ORDER BY turn_order DESC
		LIMIT ?`

	turns, err := s.queryTurns(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Turns returns every turn of a session in chronological order.
func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	query := `
		SELECT id, session_id, user_id, agent_role, message_type, content, turn_order, contains_plan_update, created_at
		FROM conversation_turns
		WHERE session_id = ?
		ORDER BY turn_order ASC`

	return s.queryTurns(ctx, query, sessionID)
}

func (s *SQLiteStore) queryTurns(ctx context.Context, query string, args ...interface{}) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close turn rows", "error", closeErr)
		}
	}()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var role, msgType string
		var planUpdate int
		var createdAt int64

		if err := rows.Scan(
			&t.ID, &t.SessionID, &t.UserID, &role, &msgType,
			&t.Content, &t.Order, &planUpdate, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}

		t.Role = domain.Role(role)
		t.Type = domain.MessageType(msgType)
		t.ContainsPlanUpdate = planUpdate != 0
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// TurnCount returns the number of persisted turns in a session.
func (s *SQLiteStore) TurnCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_turns WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return count, nil
}

// InsertReference records a context reference for a turn.
func (s *SQLiteStore) InsertReference(ctx context.Context, ref *domain.ContextReference) error {
	query := `
		INSERT INTO context_references (turn_id, reference_type, reference_id, reference_text, confidence_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var targetID interface{}
	if ref.TargetID != nil {
		targetID = *ref.TargetID
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, query,
		ref.TurnID, string(ref.Kind), targetID, ref.Snippet, ref.Confidence, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert context reference: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("context reference id: %w", err)
	}
	ref.ID = id
	ref.CreatedAt = now
	return nil
}

// RecentReferences returns the most recent references recorded in a session,
// newest first.
func (s *SQLiteStore) RecentReferences(ctx context.Context, sessionID string, limit int) ([]domain.ContextReference, error) {
	query := `
		SELECT r.id, r.turn_id, r.reference_type, r.reference_id, r.reference_text, r.confidence_score, r.created_at
		FROM context_references r
		JOIN conversation_turns t ON r.turn_id = t.id
		WHERE t.session_id = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query context references: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close reference rows", "error", closeErr)
		}
	}()

	var refs []domain.ContextReference
	for rows.Next() {
		var ref domain.ContextReference
		var kind string
		var targetID sql.NullInt64
		var snippet sql.NullString
		var createdAt int64

		if err := rows.Scan(&ref.ID, &ref.TurnID, &kind, &targetID, &snippet, &ref.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}

		ref.Kind = domain.ReferenceKind(kind)
		if targetID.Valid {
			id := targetID.Int64
			ref.TargetID = &id
		}
		ref.Snippet = snippet.String
		ref.CreatedAt = time.Unix(createdAt, 0)
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}

	return refs, nil
}

// ActiveSummary retrieves the active summary for a session.
func (s *SQLiteStore) ActiveSummary(ctx context.Context, sessionID string) (*domain.Summary, error) {
	query := `
		SELECT id, session_id, user_id, agent_role, summary_type, summary_content, start_order, end_order, is_active, created_at
		FROM memory_summaries
		WHERE session_id = ? AND is_active = 1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var sum domain.Summary
	var role string
	var active int
	var createdAt int64

	err := row.Scan(
		&sum.ID, &sum.SessionID, &sum.UserID, &role, &sum.Kind,
		&sum.Content, &sum.StartOrder, &sum.EndOrder, &active, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan summary row: %w", err)
	}

	sum.Role = domain.Role(role)
	sum.Active = active != 0
	sum.CreatedAt = time.Unix(createdAt, 0)

	return &sum, nil
}

// SaveSummary inserts a summary and deactivates any prior active summary of
// the same kind in the same transaction.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *domain.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE memory_summaries SET is_active = 0 WHERE session_id = ? AND summary_type = ? AND is_active = 1`,
		summary.SessionID, summary.Kind,
	); err != nil {
		return fmt.Errorf("deactivate prior summaries: %w", err)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO memory_summaries (session_id, user_id, agent_role, summary_type, summary_content, start_order, end_order, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		summary.SessionID, summary.UserID, string(summary.Role), summary.Kind,
		summary.Content, summary.StartOrder, summary.EndOrder, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("summary id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary transaction: %w", err)
	}

	summary.ID = id
	summary.Active = true
	summary.CreatedAt = now
	return nil
}

// SessionAnalytics aggregates message and plan-update counts for a session.
func (s *SQLiteStore) SessionAnalytics(ctx context.Context, sessionID string) (*domain.SessionAnalytics, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN message_type = 'human' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN message_type = 'assistant' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(contains_plan_update), 0)
		FROM conversation_turns
		WHERE session_id = ?`

	analytics := &domain.SessionAnalytics{
		SessionID:    session.ID,
		LastActivity: session.LastActivity,
		Status:       string(session.Status),
	}
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&analytics.TotalMessages, &analytics.HumanMessages,
		&analytics.AssistantMessages, &analytics.PlanUpdates,
	); err != nil {
		return nil, fmt.Errorf("aggregate session analytics: %w", err)
	}

	analytics.DurationMinutes = session.Duration().Minutes()
	return analytics, nil
}
