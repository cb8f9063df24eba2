package domain

import (
	"time"
)

// MinutesPerDay is the domain bound for all per-day duration measurements.
const MinutesPerDay = 1440.0

// DayObservation is one raw subject-day after joining the usage and
// location tables for a wave. Nullable cells are pointers; a nil field
// means the source table had no value for that day.
type DayObservation struct {
	Subject SubjectID `json:"subject_id" db:"subject_id"`
	Wave    Wave      `json:"wave" db:"wave"`
	Date    time.Time `json:"date" db:"date"`

	// TotalUnlock is the total phone unlock duration in minutes.
	// Nil when the usage table has no row for this day.
	TotalUnlock *float64 `json:"total_unlock_minutes" db:"total_unlock_minutes"`
	// HomeUnlock is the unlock duration while at home, in minutes.
	HomeUnlock *float64 `json:"home_unlock_minutes" db:"home_unlock_minutes"`
	// TimeAtHome is the minutes spent at home, domain [0,1440].
	TimeAtHome *float64 `json:"time_at_home_minutes" db:"time_at_home_minutes"`
}

// SubjectDay is the corrected, derived record for one subject-day.
// It is created once by the feature deriver and immutable thereafter.
// Every feature field is nullable: nil means the feature could not be
// derived for this day and counts as missing in window aggregation.
type SubjectDay struct {
	Subject SubjectID `json:"subject_id" db:"subject_id"`
	Wave    Wave      `json:"wave" db:"wave"`
	Date    time.Time `json:"date" db:"date"`

	TimeAtHome *float64 `json:"time_at_home" db:"time_at_home"`
	AwayTime   *float64 `json:"away_time" db:"away_time"`
	RatioTotal *float64 `json:"ratio_total" db:"ratio_total"`
	RatioHome  *float64 `json:"ratio_home" db:"ratio_home"`
	RatioAway  *float64 `json:"ratio_away" db:"ratio_away"`
}

// Feature names one of the derived per-day quantities tracked by the
// window aggregator.
type Feature string

const (
	FeatureTimeAtHome Feature = "time_at_home"
	FeatureAwayTime   Feature = "away_time"
	FeatureRatioTotal Feature = "ratio_total"
	FeatureRatioHome  Feature = "ratio_home"
	FeatureRatioAway  Feature = "ratio_away"
)

// AllFeatures returns the tracked features in their canonical column order.
func AllFeatures() []Feature {
	return []Feature{
		FeatureTimeAtHome,
		FeatureAwayTime,
		FeatureRatioTotal,
		FeatureRatioHome,
		FeatureRatioAway,
	}
}

// Value returns the named feature of the record, nil when missing.
func (d SubjectDay) Value(f Feature) *float64 {
	switch f {
	case FeatureTimeAtHome:
		return d.TimeAtHome
	case FeatureAwayTime:
		return d.AwayTime
	case FeatureRatioTotal:
		return d.RatioTotal
	case FeatureRatioHome:
		return d.RatioHome
	case FeatureRatioAway:
		return d.RatioAway
	default:
		return nil
	}
}
