package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 1

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One row per pipeline run, with the full gate report as JSON.
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id           TEXT    PRIMARY KEY,
	started_at       TEXT    NOT NULL,
	finished_at      TEXT    NOT NULL,
	window_days      INTEGER NOT NULL,
	observed_ids     INTEGER NOT NULL,
	identity_classes INTEGER NOT NULL,
	analysis_rows    INTEGER NOT NULL,
	report_json      TEXT    NOT NULL DEFAULT ''
);

-- The assembled analysis table, one row per eligible survey event.
CREATE TABLE IF NOT EXISTS analysis_rows (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id               TEXT    NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
	canonical_id         INTEGER NOT NULL,
	wave                 INTEGER NOT NULL,
	survey_date          TEXT    NOT NULL,
	severity             INTEGER NOT NULL,
	age                  REAL    NOT NULL,
	years_elapsed        REAL    NOT NULL,
	median_time_at_home  REAL    NOT NULL,
	missing_time_at_home INTEGER NOT NULL,
	median_away_time     REAL    NOT NULL,
	missing_away_time    INTEGER NOT NULL,
	median_ratio_total   REAL    NOT NULL,
	missing_ratio_total  INTEGER NOT NULL,
	median_ratio_home    REAL    NOT NULL,
	missing_ratio_home   INTEGER NOT NULL,
	median_ratio_away    REAL    NOT NULL,
	missing_ratio_away   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_rows_run ON analysis_rows(run_id);
CREATE INDEX IF NOT EXISTS idx_analysis_rows_canonical ON analysis_rows(canonical_id);
`,
}
