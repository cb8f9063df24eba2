package assemble

import (
	"log/slog"
	"sort"
	"time"

	"wavecli/internal/identity"
	"wavecli/pkg/contracts/domain"
)

const hoursPerYear = 24 * 365.25

// Assembler joins windowed feature sets with resolved identities, the
// demographic covariate, and the elapsed-time covariate into the final
// analysis table.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an assembler. A nil logger falls back to
// slog.Default().
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// GateReport counts the rows dropped at each assembly gate, for the
// run's audit report.
type GateReport struct {
	WindowedSets        int
	Assembled           int
	IncompleteWindow    int
	IncompleteByFeature map[domain.Feature]int
	MissingCovariate    int
}

// Assemble builds the analysis table. studyStart anchors the
// elapsed-time covariate: it is the earliest date observed in the
// earliest wave. Sets whose medians are undefined for any feature are
// excluded (median-of-empty is undefined, not zero); subjects without a
// demographic match are excluded and counted.
func (a *Assembler) Assemble(
	sets []domain.WindowedFeatureSet,
	res *identity.Resolution,
	demographics []domain.Demographic,
	studyStart time.Time,
) ([]domain.AnalysisRow, GateReport) {
	report := GateReport{
		WindowedSets:        len(sets),
		IncompleteByFeature: make(map[domain.Feature]int),
	}

	ageByCanonical := make(map[domain.SubjectID]float64, len(demographics))
	for _, d := range demographics {
		ageByCanonical[res.Canonical(d.Subject)] = d.Age
	}

	var rows []domain.AnalysisRow
	for _, set := range sets {
		if !set.Complete() {
			report.IncompleteWindow++
			for _, f := range domain.AllFeatures() {
				if st, ok := set.Stats[f]; !ok || st.Median == nil {
					report.IncompleteByFeature[f]++
				}
			}
			continue
		}

		canonical := res.Canonical(set.Event.Subject)
		age, ok := ageByCanonical[canonical]
		if !ok {
			report.MissingCovariate++
			a.logger.Debug("excluding row without demographic match",
				slog.Int64("canonical_id", int64(canonical)),
				slog.String("wave", set.Event.Wave.String()),
				slog.String("survey_date", set.Event.Date.Format("2006-01-02")),
			)
			continue
		}

		stats := make(map[domain.Feature]domain.FeatureStat, len(set.Stats))
		for f, st := range set.Stats {
			stats[f] = st
		}

		rows = append(rows, domain.AnalysisRow{
			CanonicalID:  canonical,
			Wave:         set.Event.Wave,
			SurveyDate:   set.Event.Date,
			Severity:     set.Event.Severity,
			Age:          age,
			YearsElapsed: set.Event.Date.Sub(studyStart).Hours() / hoursPerYear,
			Stats:        stats,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.CanonicalID != b.CanonicalID {
			return a.CanonicalID < b.CanonicalID
		}
		if !a.SurveyDate.Equal(b.SurveyDate) {
			return a.SurveyDate.Before(b.SurveyDate)
		}
		return a.Wave < b.Wave
	})
	report.Assembled = len(rows)

	return rows, report
}
