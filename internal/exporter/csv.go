package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"wavecli/pkg/contracts/domain"
)

// AnalysisHeader returns the CSV header of the analysis table: the join
// keys and covariates first, then one median and one missing-count
// column per tracked feature, in canonical feature order.
func AnalysisHeader() []string {
	header := []string{
		"canonical_id",
		"wave",
		"survey_date",
		"severity",
		"age",
		"years_elapsed",
	}
	for _, f := range domain.AllFeatures() {
		header = append(header, "median_"+string(f), "missing_"+string(f))
	}
	return header
}

// WriteAnalysisCSV writes the analysis table to path. Units are the
// documented ones: minutes for durations, ratios in [0,1], severity bins
// 0-3, elapsed time in fractional years.
func WriteAnalysisCSV(path string, rows []domain.AnalysisRow, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create analysis CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(AnalysisHeader()); err != nil {
		return fmt.Errorf("write analysis CSV header: %w", err)
	}

	for _, row := range rows {
		record, err := formatAnalysisRow(row)
		if err != nil {
			return fmt.Errorf("format analysis row for canonical id %d: %w", row.CanonicalID, err)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write analysis row for canonical id %d: %w", row.CanonicalID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush analysis CSV: %w", err)
	}

	logger.Info("wrote analysis table",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
	)

	return nil
}

func formatAnalysisRow(row domain.AnalysisRow) ([]string, error) {
	record := []string{
		strconv.FormatInt(int64(row.CanonicalID), 10),
		strconv.Itoa(int(row.Wave)),
		row.SurveyDate.Format("2006-01-02"),
		strconv.Itoa(int(row.Severity)),
		formatFloat(row.Age),
		formatFloat(row.YearsElapsed),
	}
	for _, f := range domain.AllFeatures() {
		st, ok := row.Stats[f]
		if !ok || st.Median == nil {
			return nil, fmt.Errorf("feature %s has no defined median", f)
		}
		record = append(record, formatFloat(*st.Median), strconv.Itoa(st.Missing))
	}
	return record, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
