package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the decision database schema.
const Schema = `
-- Decision records table (append-only; only the two supersession fields
-- are ever updated in place)
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    organization_id TEXT NOT NULL,
    onboarding_session_id TEXT,
    step TEXT NOT NULL,
    outcome TEXT NOT NULL,
    policy_rule_ids TEXT NOT NULL,
    decision_maker TEXT NOT NULL,
    decision_timestamp TIMESTAMP NOT NULL,
    evidence_references TEXT NOT NULL,
    rule_results TEXT NOT NULL,
    reason TEXT,
    policy_version TEXT NOT NULL,
    expires_at TIMESTAMP,
    review_interval_days INTEGER,
    review_due_at TIMESTAMP,
    is_superseded BOOLEAN NOT NULL DEFAULT 0,
    previous_decision_id TEXT,
    superseded_by_decision_id TEXT,
    dedup_key TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_decisions_org_step ON decisions(organization_id, step);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(decision_timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_dedup_key ON decisions(dedup_key);
CREATE INDEX IF NOT EXISTS idx_decisions_expires_at ON decisions(expires_at);
CREATE INDEX IF NOT EXISTS idx_decisions_review_due_at ON decisions(review_due_at);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`
