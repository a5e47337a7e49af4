package store

// schemaSQL is the base schema, applied once on first open. Later changes go
// through migrations.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	output_path TEXT,
	document_type TEXT NOT NULL,
	model TEXT,
	images_total INTEGER NOT NULL DEFAULT 0,
	images_described INTEGER NOT NULL DEFAULT 0,
	images_accepted INTEGER NOT NULL DEFAULT 0,
	images_applied INTEGER NOT NULL DEFAULT 0,
	images_failed INTEGER NOT NULL DEFAULT 0,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	image_id TEXT NOT NULL,
	format TEXT,
	alt_text TEXT,
	accepted INTEGER NOT NULL DEFAULT 0,
	decorative INTEGER NOT NULL DEFAULT 0,
	rejection_reason TEXT,
	warnings TEXT,
	failure_stage TEXT,
	failure_reason TEXT,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_run_images_run ON run_images(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_path);
`
