package exporter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavecli/pkg/contracts/domain"
)

func fptr(v float64) *float64 { return &v }

func testRow() domain.AnalysisRow {
	stats := map[domain.Feature]domain.FeatureStat{
		domain.FeatureTimeAtHome: {Median: fptr(600), Missing: 1},
		domain.FeatureAwayTime:   {Median: fptr(840), Missing: 1},
		domain.FeatureRatioTotal: {Median: fptr(0.125)},
		domain.FeatureRatioHome:  {Median: fptr(0.2)},
		domain.FeatureRatioAway:  {Median: fptr(0.05)},
	}
	return domain.AnalysisRow{
		CanonicalID:  305,
		Wave:         domain.Wave3,
		SurveyDate:   time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		Severity:     domain.SeverityMild,
		Age:          27.5,
		YearsElapsed: 1.25,
		Stats:        stats,
	}
}

func TestAnalysisHeader(t *testing.T) {
	header := AnalysisHeader()

	assert.Equal(t, []string{
		"canonical_id", "wave", "survey_date", "severity", "age", "years_elapsed",
		"median_time_at_home", "missing_time_at_home",
		"median_away_time", "missing_away_time",
		"median_ratio_total", "missing_ratio_total",
		"median_ratio_home", "missing_ratio_home",
		"median_ratio_away", "missing_ratio_away",
	}, header)
}

func TestWriteAnalysisCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "analysis.csv")

	require.NoError(t, WriteAnalysisCSV(path, []domain.AnalysisRow{testRow()}, nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, AnalysisHeader(), records[0])
	assert.Equal(t, []string{
		"305", "3", "2022-06-01", "1", "27.5", "1.25",
		"600", "1", "840", "1", "0.125", "0", "0.2", "0", "0.05", "0",
	}, records[1])
}

func TestWriteAnalysisCSVUndefinedMedian(t *testing.T) {
	row := testRow()
	row.Stats[domain.FeatureRatioAway] = domain.FeatureStat{Missing: 14}

	err := WriteAnalysisCSV(filepath.Join(t.TempDir(), "analysis.csv"), []domain.AnalysisRow{row}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no defined median")
}

func TestWriteAnalysisCSVEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")

	require.NoError(t, WriteAnalysisCSV(path, nil, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "canonical_id") // header always written
}

func TestWriteRunReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run_report.json")
	report := map[string]any{"run_id": "run-1", "analysis_rows": 2}

	require.NoError(t, WriteRunReport(path, report, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(2), got["analysis_rows"])
}
