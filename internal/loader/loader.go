package loader

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"wavecli/pkg/contracts/domain"
)

// LoadStats reports how many rows of a table survived parsing. Skipped
// rows were individually malformed; they are logged and counted, never
// fatal for the table.
type LoadStats struct {
	Table   string
	Wave    domain.Wave
	Rows    int
	Loaded  int
	Skipped int
}

// UsageRow is one parsed row of a wave's phone-usage table.
type UsageRow struct {
	Subject     domain.SubjectID
	Wave        domain.Wave
	Date        time.Time
	TotalUnlock float64
	HomeUnlock  *float64
}

// LocationRow is one parsed row of a wave's location table.
type LocationRow struct {
	Subject    domain.SubjectID
	Wave       domain.Wave
	Date       time.Time
	TimeAtHome *float64
}

// LoadSurvey reads one wave's survey table. Rows with a null anxiety
// score carry no outcome and are skipped; rows with an unparseable or
// out-of-scale score are skipped and logged with their keys.
func LoadSurvey(path string, wave domain.Wave, logger *slog.Logger) ([]domain.SurveyEvent, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := ReadTable(path, SurveySchema)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Table: SurveySchema.Name, Wave: wave, Rows: len(records)}
	var events []domain.SurveyEvent
	for _, rec := range records {
		subject, date, err := parseKeys(rec)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping survey row", "wave", wave.String(), "error", err)
			continue
		}
		if rec[ColAnxiety] == "" {
			stats.Skipped++
			continue // no outcome reported that day
		}
		score, err := strconv.Atoi(rec[ColAnxiety])
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping survey row, bad score",
				"wave", wave.String(), "subject_id", int64(subject),
				"date", date.Format("2006-01-02"), "value", rec[ColAnxiety])
			continue
		}
		severity, err := domain.BinSeverity(score)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping survey row, score out of scale",
				"wave", wave.String(), "subject_id", int64(subject),
				"date", date.Format("2006-01-02"), "score", score)
			continue
		}
		events = append(events, domain.SurveyEvent{
			Subject:  subject,
			Wave:     wave,
			Date:     date,
			Score:    score,
			Severity: severity,
		})
	}
	stats.Loaded = len(events)

	return events, stats, nil
}

// LoadUsage reads one wave's phone-usage table. total_unlock_minutes is
// required per row; home_unlock_minutes may be null.
func LoadUsage(path string, wave domain.Wave, logger *slog.Logger) ([]UsageRow, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := ReadTable(path, UsageSchema)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Table: UsageSchema.Name, Wave: wave, Rows: len(records)}
	var rows []UsageRow
	for _, rec := range records {
		subject, date, err := parseKeys(rec)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping usage row", "wave", wave.String(), "error", err)
			continue
		}
		total, err := parseFloat(rec[ColTotalUnlock])
		if err != nil || total == nil {
			stats.Skipped++
			logger.Warn("skipping usage row, bad total_unlock",
				"wave", wave.String(), "subject_id", int64(subject),
				"date", date.Format("2006-01-02"), "value", rec[ColTotalUnlock])
			continue
		}
		home, err := parseFloat(rec[ColHomeUnlock])
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping usage row, bad home_unlock",
				"wave", wave.String(), "subject_id", int64(subject),
				"date", date.Format("2006-01-02"), "value", rec[ColHomeUnlock])
			continue
		}
		rows = append(rows, UsageRow{
			Subject:     subject,
			Wave:        wave,
			Date:        date,
			TotalUnlock: *total,
			HomeUnlock:  home,
		})
	}
	stats.Loaded = len(rows)

	return rows, stats, nil
}

// LoadLocation reads one wave's location table.
func LoadLocation(path string, wave domain.Wave, logger *slog.Logger) ([]LocationRow, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := ReadTable(path, LocationSchema)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Table: LocationSchema.Name, Wave: wave, Rows: len(records)}
	var rows []LocationRow
	for _, rec := range records {
		subject, date, err := parseKeys(rec)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping location row", "wave", wave.String(), "error", err)
			continue
		}
		tah, err := parseFloat(rec[ColTimeAtHome])
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping location row, bad time_at_home",
				"wave", wave.String(), "subject_id", int64(subject),
				"date", date.Format("2006-01-02"), "value", rec[ColTimeAtHome])
			continue
		}
		rows = append(rows, LocationRow{
			Subject:    subject,
			Wave:       wave,
			Date:       date,
			TimeAtHome: tah,
		})
	}
	stats.Loaded = len(rows)

	return rows, stats, nil
}

// LoadMapping reads the cross-wave identifier-mapping table. Rows with
// no parseable id in any cell are skipped.
func LoadMapping(path string, logger *slog.Logger) ([]domain.MappingRow, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := ReadTable(path, MappingSchema)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Table: MappingSchema.Name, Rows: len(records)}
	var rows []domain.MappingRow
	for _, rec := range records {
		row := domain.MappingRow{
			Wave2: parseOptionalID(rec[ColWave2ID]),
			Wave3: parseOptionalID(rec[ColWave3ID]),
			Wave4: parseOptionalID(rec[ColWave4ID]),
		}
		if row.Wave2 == nil && row.Wave3 == nil && row.Wave4 == nil {
			stats.Skipped++
			logger.Warn("skipping mapping row with no usable ids",
				"wave2", rec[ColWave2ID], "wave3", rec[ColWave3ID], "wave4", rec[ColWave4ID])
			continue
		}
		rows = append(rows, row)
	}
	stats.Loaded = len(rows)

	return rows, stats, nil
}

// LoadDemographics reads the demographics table.
func LoadDemographics(path string, logger *slog.Logger) ([]domain.Demographic, LoadStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := ReadTable(path, DemographicsSchema)
	if err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Table: DemographicsSchema.Name, Rows: len(records)}
	var rows []domain.Demographic
	for _, rec := range records {
		subject, err := parseID(rec[ColSubjectID])
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping demographics row, bad subject_id", "value", rec[ColSubjectID])
			continue
		}
		age, err := parseFloat(rec[ColAge])
		if err != nil || age == nil {
			stats.Skipped++
			logger.Warn("skipping demographics row, bad age",
				"subject_id", int64(subject), "value", rec[ColAge])
			continue
		}
		rows = append(rows, domain.Demographic{Subject: subject, Age: *age})
	}
	stats.Loaded = len(rows)

	return rows, stats, nil
}

func parseKeys(rec Record) (domain.SubjectID, time.Time, error) {
	subject, err := parseID(rec[ColSubjectID])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("bad subject_id %q: %w", rec[ColSubjectID], err)
	}
	date, err := parseDate(rec[ColDate])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("subject %d: bad date %q: %w", subject, rec[ColDate], err)
	}
	return subject, date, nil
}

func parseID(cell string) (domain.SubjectID, error) {
	v, err := strconv.ParseInt(cell, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.SubjectID(v), nil
}

func parseOptionalID(cell string) *domain.SubjectID {
	if cell == "" {
		return nil
	}
	id, err := parseID(cell)
	if err != nil {
		return nil
	}
	return &id
}

// parseFloat parses a nullable numeric cell: empty means null, anything
// else must be a number.
func parseFloat(cell string) (*float64, error) {
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseDate parses a calendar date, normalized to UTC midnight.
func parseDate(cell string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", cell, time.UTC)
}
