package features

import (
	"fmt"
	"time"

	"wavecli/pkg/contracts/domain"
)

// RejectReason classifies why a subject-day was rejected.
type RejectReason string

const (
	// ReasonNegativeDuration covers raw durations below zero.
	ReasonNegativeDuration RejectReason = "negative_duration"
	// ReasonTimeAtHomeOutOfDay covers time_at_home outside [0,1440].
	ReasonTimeAtHomeOutOfDay RejectReason = "time_at_home_out_of_day"
	// ReasonNegativeAwayUnlock covers total_unlock < home_unlock after
	// the correction step.
	ReasonNegativeAwayUnlock RejectReason = "negative_away_unlock"
	// ReasonRatioOutOfRange covers a derived ratio escaping [0,1].
	ReasonRatioOutOfRange RejectReason = "ratio_out_of_range"
)

// RowError is a per-row data-corruption rejection. It carries the
// identifying keys so the drop can be audited without re-reading the
// source tables.
type RowError struct {
	Subject domain.SubjectID
	Wave    domain.Wave
	Date    time.Time
	Reason  RejectReason
	Detail  string
}

// Error implements the error interface
func (e *RowError) Error() string {
	return fmt.Sprintf("subject %d %s %s: %s (%s)",
		e.Subject, e.Wave, e.Date.Format("2006-01-02"), e.Reason, e.Detail)
}

func reject(o domain.DayObservation, reason RejectReason, detail string) error {
	return &RowError{
		Subject: o.Subject,
		Wave:    o.Wave,
		Date:    o.Date,
		Reason:  reason,
		Detail:  detail,
	}
}
