package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavecli/pkg/contracts/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "wavecli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func analysisRow(canonical int64, median float64) domain.AnalysisRow {
	stats := make(map[domain.Feature]domain.FeatureStat)
	for _, f := range domain.AllFeatures() {
		m := median
		stats[f] = domain.FeatureStat{Median: &m, Missing: 2}
	}
	return domain.AnalysisRow{
		CanonicalID:  domain.SubjectID(canonical),
		Wave:         domain.Wave2,
		SurveyDate:   time.Date(2021, 3, 16, 0, 0, 0, 0, time.UTC),
		Severity:     domain.SeverityMild,
		Age:          27,
		YearsElapsed: 0.5,
		Stats:        stats,
	}
}

func summary(runID string, rows int) RunSummary {
	now := time.Now().UTC()
	return RunSummary{
		RunID:           runID,
		StartedAt:       now.Add(-time.Minute),
		FinishedAt:      now,
		WindowDays:      14,
		ObservedIDs:     3,
		IdentityClasses: 2,
		AnalysisRows:    rows,
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rows := []domain.AnalysisRow{analysisRow(305, 0.25), analysisRow(410, 0.5)}
	report := map[string]int{"windowed_sets": 2}

	require.NoError(t, s.SaveRun(summary("run-1", len(rows)), report, rows))

	count, err := s.RunCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rowCount, err := s.AnalysisRowCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rowCount)

	rowCount, err = s.AnalysisRowCount("no-such-run")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rowCount)
}

func TestSaveRunDuplicateRunID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveRun(summary("run-1", 0), nil, nil))
	assert.Error(t, s.SaveRun(summary("run-1", 0), nil, nil))

	count, err := s.RunCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSaveRunRejectsUndefinedMedian(t *testing.T) {
	s := newTestStore(t)

	row := analysisRow(305, 0.25)
	row.Stats[domain.FeatureRatioAway] = domain.FeatureStat{Missing: 14}

	err := s.SaveRun(summary("run-1", 1), nil, []domain.AnalysisRow{row})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no defined median")

	// The whole transaction rolls back, including the run row.
	count, err := s.RunCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wavecli.db")

	s1, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SaveRun(summary("run-1", 0), nil, nil))
	require.NoError(t, s1.Close())

	// Reopening runs migrations again against an up-to-date schema.
	s2, err := New(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	count, err := s2.RunCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
