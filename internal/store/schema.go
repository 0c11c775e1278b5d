package store

import "strings"

// Timestamps are fixed-width UTC TEXT in both dialects. JSON documents are
// opaque TEXT on SQLite and JSONB on Postgres.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS users (
	id                   $PK,
	email                TEXT UNIQUE,
	password_hash        TEXT,
	name                 TEXT NOT NULL DEFAULT '',
	company              TEXT NOT NULL DEFAULT '',
	role                 TEXT NOT NULL DEFAULT '',
	profile_completed    $BOOL,
	email_verified       $BOOL,
	verification_token   TEXT UNIQUE,
	verification_expires TEXT NOT NULL DEFAULT '',
	google_id            TEXT UNIQUE,
	created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_plans (
	id         TEXT PRIMARY KEY,
	user_id    $INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL DEFAULT '',
	model_json $JSON NOT NULL,
	tasks_json $JSON,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shares (
	id         $PK,
	user_id    $INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	plan_id    TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	model      $JSON,
	tasks      $JSON,
	created_at TEXT NOT NULL,
	UNIQUE (user_id, plan_id)
);

CREATE TABLE IF NOT EXISTS collaborators (
	id         $PK,
	share_id   $INT NOT NULL REFERENCES shares(id) ON DELETE CASCADE,
	user_id    $INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	message    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	UNIQUE (share_id, user_id)
);

CREATE TABLE IF NOT EXISTS business_model_generations (
	id         $PK,
	user_id    $INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	idea       TEXT NOT NULL,
	models     $JSON NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory (
	id         $PK,
	user_id    $INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	data       $JSON NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_plans_user ON user_plans (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_generations_user ON business_model_generations (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_inventory_user ON inventory (user_id, created_at)
`

func schemaFor(d Dialect) string {
	var r *strings.Replacer
	switch d {
	case DialectPostgres:
		r = strings.NewReplacer(
			"$PK", "BIGSERIAL PRIMARY KEY",
			"$INT", "BIGINT",
			"$BOOL", "BOOLEAN NOT NULL DEFAULT false",
			"$JSON", "JSONB",
		)
	default:
		r = strings.NewReplacer(
			"$PK", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"$INT", "INTEGER",
			"$BOOL", "INTEGER NOT NULL DEFAULT 0",
			"$JSON", "TEXT",
		)
	}
	return r.Replace(schemaTemplate)
}
