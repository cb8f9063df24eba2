package domain

import (
	"fmt"
	"time"
)

// Severity is the 4-level discretization of the raw ordinal anxiety score.
type Severity int

const (
	SeverityNone     Severity = 0 // raw score 0
	SeverityMild     Severity = 1 // raw score 1-2
	SeverityModerate Severity = 2 // raw score 3-4
	SeveritySevere   Severity = 3 // raw score 5-6
)

// MaxAnxietyScore is the upper bound of the raw ordinal anxiety scale.
const MaxAnxietyScore = 6

// BinSeverity maps a raw anxiety score onto its severity bin.
// Scores outside [0,6] are rejected.
func BinSeverity(score int) (Severity, error) {
	switch {
	case score == 0:
		return SeverityNone, nil
	case score >= 1 && score <= 2:
		return SeverityMild, nil
	case score >= 3 && score <= 4:
		return SeverityModerate, nil
	case score >= 5 && score <= MaxAnxietyScore:
		return SeveritySevere, nil
	default:
		return 0, fmt.Errorf("anxiety score %d outside [0,%d]", score, MaxAnxietyScore)
	}
}

// SurveyEvent is one answered survey for a subject on a given date.
// Immutable after creation; Severity is a pure function of Score.
type SurveyEvent struct {
	Subject  SubjectID `json:"subject_id" db:"subject_id"`
	Wave     Wave      `json:"wave" db:"wave"`
	Date     time.Time `json:"date" db:"date"`
	Score    int       `json:"anxiety_score" db:"anxiety_score"`
	Severity Severity  `json:"severity" db:"severity"`
}
