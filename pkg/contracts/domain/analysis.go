package domain

import (
	"time"
)

// AnalysisRow is one row of the final analysis table: a windowed feature
// set joined with the resolved canonical identity, the demographic
// covariate, the elapsed-time covariate, and the binned outcome. This
// table is the sole input to the external regression.
type AnalysisRow struct {
	CanonicalID SubjectID `json:"canonical_id" db:"canonical_id"`
	Wave        Wave      `json:"wave" db:"wave"`
	SurveyDate  time.Time `json:"survey_date" db:"survey_date"`
	Severity    Severity  `json:"severity" db:"severity"`
	Age         float64   `json:"age" db:"age"`
	// YearsElapsed is the fractional years between the earliest date
	// observed in the earliest wave and the survey date.
	YearsElapsed float64 `json:"years_elapsed" db:"years_elapsed"`

	Stats map[Feature]FeatureStat `json:"stats"`
}
