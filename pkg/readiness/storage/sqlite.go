package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/themis/pkg/readiness"
)

// schema contains the SQL statements for the readiness evaluation store.
const schema = `
CREATE TABLE IF NOT EXISTS readiness_evaluations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    organization_id TEXT,
    token_type TEXT,
    network TEXT,
    status TEXT NOT NULL,
    can_proceed BOOLEAN NOT NULL,
    summary TEXT,
    category_results TEXT NOT NULL,
    remediation_tasks TEXT,
    degraded BOOLEAN NOT NULL DEFAULT 0,
    degraded_sources TEXT,
    policy_version TEXT,
    evaluated_at TIMESTAMP NOT NULL,
    evaluation_time_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_readiness_user_id ON readiness_evaluations(user_id);
CREATE INDEX IF NOT EXISTS idx_readiness_evaluated_at ON readiness_evaluations(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_readiness_status ON readiness_evaluations(status);
`

// SQLiteConfig contains configuration for the SQLite readiness backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/readiness.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage implements readiness.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the readiness database and applies
// the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, readiness.NewStorageError("sqlite", "open", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, readiness.NewStorageError("sqlite", "enable_wal", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, readiness.NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, readiness.NewStorageError("sqlite", "create_schema", err)
	}

	s := &SQLiteStorage{
		db:     db,
		logger: slog.Default().With("component", "readiness.storage.sqlite"),
	}
	s.logger.Info("readiness storage initialized", "path", config.Path)
	return s, nil
}

// Insert persists an evaluation.
func (s *SQLiteStorage) Insert(ctx context.Context, e *readiness.Evaluation) error {
	categoryResults, err := json.Marshal(e.CategoryResults)
	if err != nil {
		return readiness.NewStorageError("sqlite", "marshal_category_results", err)
	}
	tasks, err := json.Marshal(e.RemediationTasks)
	if err != nil {
		return readiness.NewStorageError("sqlite", "marshal_tasks", err)
	}
	degradedSources, err := json.Marshal(e.DegradedSources)
	if err != nil {
		return readiness.NewStorageError("sqlite", "marshal_degraded_sources", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO readiness_evaluations (
			id, user_id, organization_id, token_type, network, status,
			can_proceed, summary, category_results, remediation_tasks,
			degraded, degraded_sources, policy_version, evaluated_at,
			evaluation_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.OrganizationID, e.TokenType, e.Network, string(e.Status),
		e.CanProceed, e.Summary, string(categoryResults), string(tasks),
		e.Degraded, string(degradedSources), e.PolicyVersion, e.EvaluatedAt.UTC(),
		e.EvaluationTimeMs,
	)
	if err != nil {
		return readiness.NewStorageError("sqlite", "insert", err)
	}
	return nil
}

// Get returns an evaluation by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*readiness.Evaluation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, organization_id, token_type, network, status,
		       can_proceed, summary, category_results, remediation_tasks,
		       degraded, degraded_sources, policy_version, evaluated_at,
		       evaluation_time_ms
		FROM readiness_evaluations WHERE id = ?`, id)

	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &readiness.NotFoundError{EvaluationID: id}
	}
	if err != nil {
		return nil, readiness.NewStorageError("sqlite", "get", err)
	}
	return e, nil
}

// History returns a user's evaluations, newest first.
func (s *SQLiteStorage) History(ctx context.Context, q *readiness.HistoryQuery) ([]*readiness.Evaluation, error) {
	query := `
		SELECT id, user_id, organization_id, token_type, network, status,
		       can_proceed, summary, category_results, remediation_tasks,
		       degraded, degraded_sources, policy_version, evaluated_at,
		       evaluation_time_ms
		FROM readiness_evaluations
		WHERE user_id = ?`
	args := []any{q.UserID}

	if q.FromDate != nil {
		query += " AND evaluated_at >= ?"
		args = append(args, q.FromDate.UTC())
	}
	query += " ORDER BY evaluated_at DESC, id ASC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readiness.NewStorageError("sqlite", "history", err)
	}
	defer rows.Close()

	var results []*readiness.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, readiness.NewStorageError("sqlite", "history_scan", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, readiness.NewStorageError("sqlite", "history_rows", err)
	}
	return results, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanEvaluation.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvaluation reads one evaluation row.
func scanEvaluation(row scanner) (*readiness.Evaluation, error) {
	var (
		e               readiness.Evaluation
		status          string
		categoryResults string
		tasks           sql.NullString
		degradedSources sql.NullString
	)

	err := row.Scan(&e.ID, &e.UserID, &e.OrganizationID, &e.TokenType, &e.Network, &status,
		&e.CanProceed, &e.Summary, &categoryResults, &tasks,
		&e.Degraded, &degradedSources, &e.PolicyVersion, &e.EvaluatedAt,
		&e.EvaluationTimeMs)
	if err != nil {
		return nil, err
	}

	e.Status = readiness.Status(status)
	if err := json.Unmarshal([]byte(categoryResults), &e.CategoryResults); err != nil {
		return nil, fmt.Errorf("corrupt category_results: %w", err)
	}
	if tasks.Valid && tasks.String != "" {
		if err := json.Unmarshal([]byte(tasks.String), &e.RemediationTasks); err != nil {
			return nil, fmt.Errorf("corrupt remediation_tasks: %w", err)
		}
	}
	if degradedSources.Valid && degradedSources.String != "" {
		if err := json.Unmarshal([]byte(degradedSources.String), &e.DegradedSources); err != nil {
			return nil, fmt.Errorf("corrupt degraded_sources: %w", err)
		}
	}

	return &e, nil
}
