package domain

// Wave identifies one independent round of the longitudinal study.
// Each wave assigns pseudonymous subject ids from its own disjoint
// numeric range.
type Wave int

const (
	Wave2 Wave = 2
	Wave3 Wave = 3
	Wave4 Wave = 4
)

// String returns the string representation of the wave
func (w Wave) String() string {
	switch w {
	case Wave2:
		return "wave2"
	case Wave3:
		return "wave3"
	case Wave4:
		return "wave4"
	default:
		return "unknown"
	}
}

// Waves lists all study waves in chronological order.
func Waves() []Wave {
	return []Wave{Wave2, Wave3, Wave4}
}

// SubjectID is a wave-scoped pseudonymous participant identifier.
// It is NOT a stable person identifier: the same human receives a
// different SubjectID in every wave they participate in. Cross-wave
// resolution is the identity package's job.
type SubjectID int64
