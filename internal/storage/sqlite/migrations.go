package sqlite

// Schema defines the SQLite database schema
const Schema = `
-- Monitor profile definitions table
CREATE TABLE IF NOT EXISTS profile_definitions (
	id TEXT PRIMARY KEY,
	host TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	check_interval TEXT NOT NULL,
	spec_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_profile_host ON profile_definitions(host);

-- Health report audit table
CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id TEXT NOT NULL,
	host TEXT NOT NULL,
	status TEXT NOT NULL,
	issue_count INTEGER NOT NULL DEFAULT 0,
	alert_count INTEGER NOT NULL DEFAULT 0,
	recovery_count INTEGER NOT NULL DEFAULT 0,
	partial BOOLEAN NOT NULL DEFAULT 0,
	report_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (profile_id) REFERENCES profile_definitions(id)
);

CREATE INDEX IF NOT EXISTS idx_reports_profile_id ON reports(profile_id);
CREATE INDEX IF NOT EXISTS idx_reports_host ON reports(host);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);

-- Latest state table (one row per profile)
CREATE TABLE IF NOT EXISTS latest_state (
	profile_id TEXT PRIMARY KEY,
	host TEXT NOT NULL,
	status TEXT NOT NULL,
	issue_count INTEGER NOT NULL DEFAULT 0,
	alert_count INTEGER NOT NULL DEFAULT 0,
	recovery_count INTEGER NOT NULL DEFAULT 0,
	report_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (profile_id) REFERENCES profile_definitions(id)
);

CREATE INDEX IF NOT EXISTS idx_latest_state_host ON latest_state(host);
`
