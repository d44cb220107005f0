package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
)

// SQLiteConfig contains configuration for the SQLite decision backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/decisions.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements decision.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the decision database and applies
// the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	// _txlock=immediate makes transactions take the write lock up front,
	// which serializes the idempotent check-then-insert across connections.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate", config.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "decision.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("decision storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize applies pragmas and the schema.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return decision.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return decision.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return decision.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return decision.NewStorageError("sqlite", "set_schema_version", err)
	}

	return nil
}

const decisionColumns = `id, organization_id, onboarding_session_id, step, outcome,
policy_rule_ids, decision_maker, decision_timestamp, evidence_references,
rule_results, reason, policy_version, expires_at, review_interval_days,
is_superseded, previous_decision_id, superseded_by_decision_id, dedup_key`

// FindByDedupKey returns the most recent non-superseded decision with the
// dedup key inside the window, or nil.
func (s *SQLiteStorage) FindByDedupKey(ctx context.Context, key string, windowStart time.Time) (*decision.Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE dedup_key = ? AND is_superseded = 0 AND decision_timestamp >= ?
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT 1`, key, windowStart.UTC())

	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "find_by_dedup_key", err)
	}
	return d, nil
}

// InsertIdempotent persists the decision unless an identical one exists
// inside the window. The check and insert run inside one transaction; the
// connection takes the write lock at transaction start (_txlock=immediate),
// so two concurrent identical creates serialize and only the first inserts.
func (s *SQLiteStorage) InsertIdempotent(ctx context.Context, d *decision.Decision, windowStart time.Time) (*decision.Decision, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, decision.NewStorageError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE dedup_key = ? AND is_superseded = 0 AND decision_timestamp >= ?
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT 1`, d.DedupKey, windowStart.UTC())

	existing, err := scanDecision(row)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, decision.NewStorageError("sqlite", "insert_idempotent", err)
	}

	if err := insertDecision(ctx, tx, d); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, decision.NewStorageError("sqlite", "commit", err)
	}
	return d, true, nil
}

// Get returns the decision by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*decision.Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions WHERE id = ?`, id)

	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, decision.NewNotFoundError("decision", id)
	}
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "get", err)
	}
	return d, nil
}

// GetActive returns the most recent non-superseded, non-expired decision
// for the organization and step.
func (s *SQLiteStorage) GetActive(ctx context.Context, organizationID string, step catalog.Step, now time.Time) (*decision.Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE organization_id = ? AND step = ? AND is_superseded = 0
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT 1`, organizationID, string(step), now.UTC())

	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, decision.NewNotFoundError("active decision", organizationID+"/"+string(step))
	}
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "get_active", err)
	}
	return d, nil
}

// Query returns the requested page plus the total filtered count.
func (s *SQLiteStorage) Query(ctx context.Context, q *decision.Query, now time.Time) ([]*decision.Decision, int64, error) {
	where, args := buildWhere(q, now)

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions"+where, args...).Scan(&total); err != nil {
		return nil, 0, decision.NewStorageError("sqlite", "query_count", err)
	}

	query := "SELECT " + decisionColumns + " FROM decisions" + where +
		" ORDER BY decision_timestamp DESC, id ASC"
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.PageSize, (page-1)*q.PageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, decision.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var results []*decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, 0, decision.NewStorageError("sqlite", "query_scan", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, decision.NewStorageError("sqlite", "query_rows", err)
	}

	return results, total, nil
}

// Supersede inserts the replacement and flips the old record inside one
// transaction, so readers observe both writes or neither.
func (s *SQLiteStorage) Supersede(ctx context.Context, oldID string, replacement *decision.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decision.NewStorageError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	var isSuperseded bool
	var supersededBy sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT is_superseded, superseded_by_decision_id FROM decisions WHERE id = ?", oldID).
		Scan(&isSuperseded, &supersededBy)
	if errors.Is(err, sql.ErrNoRows) {
		return decision.NewNotFoundError("decision", oldID)
	}
	if err != nil {
		return decision.NewStorageError("sqlite", "supersede_check", err)
	}
	if isSuperseded {
		return &decision.SupersededError{DecisionID: oldID, SupersededBy: supersededBy.String}
	}

	if err := insertDecision(ctx, tx, replacement); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE decisions
		SET is_superseded = 1, superseded_by_decision_id = ?
		WHERE id = ?`, replacement.ID, oldID); err != nil {
		return decision.NewStorageError("sqlite", "supersede_flip", err)
	}

	if err := tx.Commit(); err != nil {
		return decision.NewStorageError("sqlite", "commit", err)
	}
	return nil
}

// RequiringReview returns non-superseded decisions with a review date
// before the given time.
func (s *SQLiteStorage) RequiringReview(ctx context.Context, before time.Time) ([]*decision.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE is_superseded = 0 AND review_due_at IS NOT NULL AND review_due_at < ?
		ORDER BY review_due_at ASC, id ASC`, before.UTC())
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "requiring_review", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

// Expired returns non-superseded decisions whose expiry has passed.
func (s *SQLiteStorage) Expired(ctx context.Context, now time.Time) ([]*decision.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE is_superseded = 0 AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at ASC, id ASC`, now.UTC())
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "expired", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// buildWhere translates a query into a WHERE clause with AND semantics.
func buildWhere(q *decision.Query, now time.Time) (string, []any) {
	var clauses []string
	var args []any

	if q.OrganizationID != "" {
		clauses = append(clauses, "organization_id = ?")
		args = append(args, q.OrganizationID)
	}
	if q.Step != "" {
		clauses = append(clauses, "step = ?")
		args = append(args, string(q.Step))
	}
	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if q.DecisionMaker != "" {
		clauses = append(clauses, "decision_maker = ?")
		args = append(args, q.DecisionMaker)
	}
	if q.From != nil {
		clauses = append(clauses, "decision_timestamp >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		clauses = append(clauses, "decision_timestamp <= ?")
		args = append(args, q.To.UTC())
	}
	if !q.IncludeSuperseded {
		clauses = append(clauses, "is_superseded = 0")
	}
	if !q.IncludeExpired {
		clauses = append(clauses, "(expires_at IS NULL OR expires_at > ?)")
		args = append(args, now.UTC())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// insertDecision writes a full decision row inside a transaction.
func insertDecision(ctx context.Context, tx *sql.Tx, d *decision.Decision) error {
	ruleIDs, err := json.Marshal(d.PolicyRuleIDs)
	if err != nil {
		return decision.NewStorageError("sqlite", "marshal_rule_ids", err)
	}
	evidence, err := json.Marshal(d.EvidenceReferences)
	if err != nil {
		return decision.NewStorageError("sqlite", "marshal_evidence", err)
	}
	ruleResults, err := json.Marshal(d.RuleResults)
	if err != nil {
		return decision.NewStorageError("sqlite", "marshal_rule_results", err)
	}

	var expiresAt any
	if d.ExpiresAt != nil {
		expiresAt = d.ExpiresAt.UTC()
	}
	var reviewDays any
	var reviewDueAt any
	if d.ReviewIntervalDays != nil {
		reviewDays = *d.ReviewIntervalDays
		reviewDueAt = d.ReviewDueAt().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decisions (`+decisionColumns+`, review_due_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OrganizationID, nullable(d.OnboardingSessionID), string(d.Step), string(d.Outcome),
		string(ruleIDs), d.DecisionMaker, d.DecisionTimestamp.UTC(), string(evidence),
		string(ruleResults), nullable(d.Reason), d.PolicyVersion, expiresAt, reviewDays,
		d.IsSuperseded, nullable(d.PreviousDecisionID), nullable(d.SupersededByDecisionID), d.DedupKey,
		reviewDueAt,
	)
	if err != nil {
		return decision.NewStorageError("sqlite", "insert", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanDecision.
type scanner interface {
	Scan(dest ...any) error
}

// scanDecision reads one decision row.
func scanDecision(row scanner) (*decision.Decision, error) {
	var (
		d            decision.Decision
		step         string
		outcome      string
		session      sql.NullString
		ruleIDs      string
		evidence     string
		ruleResults  string
		reason       sql.NullString
		expiresAt    sql.NullTime
		reviewDays   sql.NullInt64
		previousID   sql.NullString
		supersededBy sql.NullString
	)

	err := row.Scan(&d.ID, &d.OrganizationID, &session, &step, &outcome,
		&ruleIDs, &d.DecisionMaker, &d.DecisionTimestamp, &evidence,
		&ruleResults, &reason, &d.PolicyVersion, &expiresAt, &reviewDays,
		&d.IsSuperseded, &previousID, &supersededBy, &d.DedupKey)
	if err != nil {
		return nil, err
	}

	d.Step = catalog.Step(step)
	d.Outcome = policy.Outcome(outcome)
	d.OnboardingSessionID = session.String
	d.Reason = reason.String
	d.PreviousDecisionID = previousID.String
	d.SupersededByDecisionID = supersededBy.String

	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		d.ExpiresAt = &t
	}
	if reviewDays.Valid {
		days := int(reviewDays.Int64)
		d.ReviewIntervalDays = &days
	}

	if err := json.Unmarshal([]byte(ruleIDs), &d.PolicyRuleIDs); err != nil {
		return nil, fmt.Errorf("corrupt policy_rule_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(evidence), &d.EvidenceReferences); err != nil {
		return nil, fmt.Errorf("corrupt evidence_references: %w", err)
	}
	if err := json.Unmarshal([]byte(ruleResults), &d.RuleResults); err != nil {
		return nil, fmt.Errorf("corrupt rule_results: %w", err)
	}

	return &d, nil
}

// collectDecisions drains a result set.
func collectDecisions(rows *sql.Rows) ([]*decision.Decision, error) {
	var results []*decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, decision.NewStorageError("sqlite", "scan", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, decision.NewStorageError("sqlite", "rows", err)
	}
	return results, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
