package store

// schemaSQL creates the snapshot table. Statements are idempotent.
const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS rating;

CREATE TABLE IF NOT EXISTS rating.snapshots (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID        NOT NULL UNIQUE,
	ticker      TEXT        NOT NULL,
	final_rate  INTEGER     NOT NULL,
	grade       INTEGER     NOT NULL,
	config_hash TEXT        NOT NULL,
	payload     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_ticker_created
	ON rating.snapshots (ticker, created_at DESC);
`
