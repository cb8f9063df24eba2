package window

import (
	"log/slog"
	"sort"
	"time"

	"wavecli/pkg/contracts/domain"
)

// DefaultDays is the default look-back window length in calendar days.
const DefaultDays = 14

const dateKeyFormat = "2006-01-02"

// Aggregator summarizes, for each survey event, the trailing window of
// the subject's derived daily records. The window is
// [event_date - W, event_date - 1], exactly W calendar days, never
// including the event date itself so same-day measurement cannot leak
// into a predictor of that day's survey.
type Aggregator struct {
	days   int
	logger *slog.Logger
}

// NewAggregator creates a window aggregator over a W-day trailing window.
// A non-positive days falls back to DefaultDays, a nil logger to
// slog.Default().
func NewAggregator(days int, logger *slog.Logger) *Aggregator {
	if days <= 0 {
		days = DefaultDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{days: days, logger: logger}
}

// Days returns the window length.
func (a *Aggregator) Days() int {
	return a.days
}

// AggregateStats reports the gate outcomes of one Aggregate pass.
type AggregateStats struct {
	Events              int
	Windowed            int
	InsufficientHistory int
}

// Aggregate computes a WindowedFeatureSet for every eligible survey event
// of one subject-wave. records must all belong to the same subject and
// wave as the events; they need not be sorted.
//
// An event is dropped when the subject-wave's earliest record is later
// than event_date - W: without a full W days of history the window is
// not defined, even if parts of it would be missing data. This is a hard
// precondition, counted but not surfaced as an error.
func (a *Aggregator) Aggregate(events []domain.SurveyEvent, records []domain.SubjectDay) ([]domain.WindowedFeatureSet, AggregateStats) {
	stats := AggregateStats{Events: len(events)}

	if len(records) == 0 {
		stats.InsufficientHistory = len(events)
		return nil, stats
	}

	byDate := make(map[string]domain.SubjectDay, len(records))
	earliest := records[0].Date
	for _, r := range records {
		byDate[r.Date.Format(dateKeyFormat)] = r
		if r.Date.Before(earliest) {
			earliest = r.Date
		}
	}

	var out []domain.WindowedFeatureSet
	for _, ev := range events {
		windowStart := ev.Date.AddDate(0, 0, -a.days)
		if earliest.After(windowStart) {
			stats.InsufficientHistory++
			a.logger.Debug("dropping survey event, insufficient history",
				slog.Int64("subject_id", int64(ev.Subject)),
				slog.String("wave", ev.Wave.String()),
				slog.String("event_date", ev.Date.Format(dateKeyFormat)),
				slog.String("earliest_record", earliest.Format(dateKeyFormat)),
			)
			continue
		}

		out = append(out, a.windowFor(ev, windowStart, byDate))
	}
	stats.Windowed = len(out)

	return out, stats
}

// windowFor summarizes the W days starting at windowStart. A day counts
// as missing for a feature when it is absent from the subject's records
// or present with a null value for that feature.
func (a *Aggregator) windowFor(ev domain.SurveyEvent, windowStart time.Time, byDate map[string]domain.SubjectDay) domain.WindowedFeatureSet {
	values := make(map[domain.Feature][]float64, len(domain.AllFeatures()))
	missing := make(map[domain.Feature]int, len(domain.AllFeatures()))

	for i := 0; i < a.days; i++ {
		day := windowStart.AddDate(0, 0, i)
		rec, ok := byDate[day.Format(dateKeyFormat)]
		for _, f := range domain.AllFeatures() {
			if !ok {
				missing[f]++
				continue
			}
			if v := rec.Value(f); v != nil {
				values[f] = append(values[f], *v)
			} else {
				missing[f]++
			}
		}
	}

	stats := make(map[domain.Feature]domain.FeatureStat, len(domain.AllFeatures()))
	for _, f := range domain.AllFeatures() {
		st := domain.FeatureStat{Missing: missing[f]}
		if vs := values[f]; len(vs) > 0 {
			m := Median(vs)
			st.Median = &m
		}
		stats[f] = st
	}

	return domain.WindowedFeatureSet{Event: ev, Days: a.days, Stats: stats}
}

// Median returns the median of vs with the standard even-count tie-break
// (average of the two middle values). vs must be non-empty; the input
// slice is not modified.
func Median(vs []float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
