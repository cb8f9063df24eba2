package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.

	"wavecli/pkg/contracts/domain"
)

// Store wraps a SQLite database that persists assembled analysis tables
// with their run reports.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath with WAL mode
// and a 5-second busy timeout, then runs any pending migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("check journal mode: %w", err)
	}
	if journalMode != "wal" {
		_ = db.Close()
		return nil, fmt.Errorf("expected WAL journal mode, got %q", journalMode)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunSummary identifies one persisted pipeline run.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	WindowDays      int
	ObservedIDs     int
	IdentityClasses int
	AnalysisRows    int
}

// SaveRun persists a pipeline run and its analysis rows in one
// transaction. report is marshaled to JSON alongside the summary so the
// full gate audit survives with the table.
func (s *Store) SaveRun(summary RunSummary, report any, rows []domain.AnalysisRow) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO pipeline_runs
		 (run_id, started_at, finished_at, window_days, observed_ids, identity_classes, analysis_rows, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.WindowDays,
		summary.ObservedIDs,
		summary.IdentityClasses,
		summary.AnalysisRows,
		string(reportJSON),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert pipeline run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO analysis_rows
		 (run_id, canonical_id, wave, survey_date, severity, age, years_elapsed,
		  median_time_at_home, missing_time_at_home,
		  median_away_time, missing_away_time,
		  median_ratio_total, missing_ratio_total,
		  median_ratio_home, missing_ratio_home,
		  median_ratio_away, missing_ratio_away)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare analysis insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := []any{
			summary.RunID,
			int64(row.CanonicalID),
			int(row.Wave),
			row.SurveyDate.Format("2006-01-02"),
			int(row.Severity),
			row.Age,
			row.YearsElapsed,
		}
		for _, f := range domain.AllFeatures() {
			st, ok := row.Stats[f]
			if !ok || st.Median == nil {
				_ = tx.Rollback()
				return fmt.Errorf("analysis row for canonical id %d: feature %s has no defined median", row.CanonicalID, f)
			}
			args = append(args, *st.Median, st.Missing)
		}
		if _, err := stmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert analysis row for canonical id %d: %w", row.CanonicalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// RunCount returns the number of persisted pipeline runs.
func (s *Store) RunCount() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM pipeline_runs").Scan(&count)
	return count, err
}

// AnalysisRowCount returns the number of analysis rows stored for a run.
func (s *Store) AnalysisRowCount(runID string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM analysis_rows WHERE run_id = ?", runID).Scan(&count)
	return count, err
}
