package features

import (
	"log/slog"

	"wavecli/pkg/contracts/domain"
)

// Deriver converts raw per-day usage/location observations into
// corrected, bounded, location-conditioned usage ratios. It is a pure
// per-row transformation: every input observation yields either one
// immutable SubjectDay or a typed rejection.
type Deriver struct {
	logger *slog.Logger
}

// NewDeriver creates a feature deriver. A nil logger falls back to
// slog.Default().
func NewDeriver(logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{logger: logger}
}

// DeriveStats reports the outcome of a DeriveAll pass over one dataset.
type DeriveStats struct {
	Input    int
	Derived  int
	Rejected int
	ByReason map[RejectReason]int
}

// DeriveAll derives a SubjectDay for every observation, rejecting rows
// that violate physical invariants. Rejections are logged with their
// identifying keys and counted; a bad row never aborts the pass.
func (d *Deriver) DeriveAll(obs []domain.DayObservation) ([]domain.SubjectDay, DeriveStats) {
	stats := DeriveStats{
		Input:    len(obs),
		ByReason: make(map[RejectReason]int),
	}

	days := make([]domain.SubjectDay, 0, len(obs))
	for _, o := range obs {
		day, err := Derive(o)
		if err != nil {
			stats.Rejected++
			if re, ok := err.(*RowError); ok {
				stats.ByReason[re.Reason]++
				d.logger.Warn("rejected subject-day",
					slog.Int64("subject_id", int64(re.Subject)),
					slog.String("wave", re.Wave.String()),
					slog.String("date", re.Date.Format("2006-01-02")),
					slog.String("reason", string(re.Reason)),
					slog.String("detail", re.Detail),
				)
			}
			continue
		}
		days = append(days, day)
	}
	stats.Derived = len(days)

	return days, stats
}

// Derive applies the correction rule and computes the derived fields for
// one observation. Feature fields of the result are nil wherever the raw
// inputs required to define them are null.
//
// Correction rule: an at-home unlock duration exceeding the time spent at
// home is an impossible measurement; it is capped to time-at-home rather
// than discarding the row, and the cap runs before any ratio is computed.
func Derive(o domain.DayObservation) (domain.SubjectDay, error) {
	day := domain.SubjectDay{Subject: o.Subject, Wave: o.Wave, Date: o.Date}

	if o.TotalUnlock != nil && *o.TotalUnlock < 0 {
		return day, reject(o, ReasonNegativeDuration, "total_unlock < 0")
	}
	if o.HomeUnlock != nil && *o.HomeUnlock < 0 {
		return day, reject(o, ReasonNegativeDuration, "home_unlock < 0")
	}
	if o.TimeAtHome != nil && (*o.TimeAtHome < 0 || *o.TimeAtHome > domain.MinutesPerDay) {
		return day, reject(o, ReasonTimeAtHomeOutOfDay, "time_at_home outside [0,1440]")
	}

	var home *float64
	if o.HomeUnlock != nil {
		h := *o.HomeUnlock
		if o.TimeAtHome != nil && h > *o.TimeAtHome {
			h = *o.TimeAtHome
		}
		home = &h
	}

	if o.TimeAtHome != nil {
		tah := *o.TimeAtHome
		away := domain.MinutesPerDay - tah
		day.TimeAtHome = &tah
		day.AwayTime = &away
	}

	if o.TotalUnlock != nil {
		rt := *o.TotalUnlock / domain.MinutesPerDay
		day.RatioTotal = &rt
	}

	// Post-correction ordering invariant: total unlock time can never be
	// less than at-home unlock time. A violation that the cap could not
	// repair is data corruption, not a correctable measurement.
	if o.TotalUnlock != nil && home != nil && *o.TotalUnlock < *home {
		return domain.SubjectDay{Subject: o.Subject, Wave: o.Wave, Date: o.Date},
			reject(o, ReasonNegativeAwayUnlock, "away_unlock < 0 after correction")
	}

	if home != nil && day.TimeAtHome != nil {
		var rh float64
		if *day.TimeAtHome > 0 {
			rh = *home / *day.TimeAtHome
		}
		day.RatioHome = &rh
	}

	if o.TotalUnlock != nil && home != nil && day.AwayTime != nil {
		var ra float64
		if *day.AwayTime > 0 {
			ra = (*o.TotalUnlock - *home) / *day.AwayTime
		}
		day.RatioAway = &ra
	}

	// A ratio outside [0,1] after the rules above is a modeling bug;
	// report it, never clamp it.
	for _, f := range []domain.Feature{domain.FeatureRatioTotal, domain.FeatureRatioHome, domain.FeatureRatioAway} {
		if v := day.Value(f); v != nil && (*v < 0 || *v > 1) {
			return domain.SubjectDay{Subject: o.Subject, Wave: o.Wave, Date: o.Date},
				reject(o, ReasonRatioOutOfRange, string(f)+" outside [0,1]")
		}
	}

	return day, nil
}
