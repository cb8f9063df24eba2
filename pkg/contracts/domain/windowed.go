package domain

// FeatureStat summarizes one feature over a survey event's trailing window:
// the median of the non-missing daily values and the count of missing days.
// Median is nil when every day in the window was missing; median-of-empty
// is undefined, never zero.
type FeatureStat struct {
	Median  *float64 `json:"median" db:"median"`
	Missing int      `json:"missing" db:"missing"`
}

// WindowedFeatureSet is the per-survey-event summary of the trailing
// window [event_date-W, event_date-1]. One is materialized only when the
// subject-wave has at least W days of history before the event.
type WindowedFeatureSet struct {
	Event SurveyEvent             `json:"event"`
	Days  int                     `json:"window_days"`
	Stats map[Feature]FeatureStat `json:"stats"`
}

// Complete reports whether every tracked feature has a defined median.
// Incomplete sets are excluded from the analysis table downstream.
func (w WindowedFeatureSet) Complete() bool {
	for _, f := range AllFeatures() {
		st, ok := w.Stats[f]
		if !ok || st.Median == nil {
			return false
		}
	}
	return true
}
