package identity

import (
	"fmt"

	"wavecli/pkg/contracts/domain"
)

// Range is a half-open id interval [Lo, Hi) assigned to one wave by the
// source system. Wave ranges are non-overlapping by construction.
type Range struct {
	Lo domain.SubjectID `yaml:"lo" envconfig:"LO"`
	Hi domain.SubjectID `yaml:"hi" envconfig:"HI"`
}

// Contains reports whether id falls inside the range.
func (r Range) Contains(id domain.SubjectID) bool {
	return id >= r.Lo && id < r.Hi
}

// Ranges maps each study wave to its pseudonymous id range.
type Ranges struct {
	Wave2 Range `yaml:"wave2" envconfig:"WAVE2"`
	Wave3 Range `yaml:"wave3" envconfig:"WAVE3"`
	Wave4 Range `yaml:"wave4" envconfig:"WAVE4"`
}

// DefaultRanges returns the id ranges used by the study's export system.
func DefaultRanges() Ranges {
	return Ranges{
		Wave2: Range{Lo: 300, Hi: 600},
		Wave3: Range{Lo: 600, Hi: 900},
		Wave4: Range{Lo: 900, Hi: 1200},
	}
}

// WaveOf returns the wave whose range contains id, or false when the id
// falls outside every known range.
func (rs Ranges) WaveOf(id domain.SubjectID) (domain.Wave, bool) {
	switch {
	case rs.Wave2.Contains(id):
		return domain.Wave2, true
	case rs.Wave3.Contains(id):
		return domain.Wave3, true
	case rs.Wave4.Contains(id):
		return domain.Wave4, true
	default:
		return 0, false
	}
}

// Validate checks that every range is well-formed and that no two ranges
// overlap.
func (rs Ranges) Validate() error {
	all := []struct {
		wave domain.Wave
		r    Range
	}{
		{domain.Wave2, rs.Wave2},
		{domain.Wave3, rs.Wave3},
		{domain.Wave4, rs.Wave4},
	}

	for _, a := range all {
		if a.r.Lo >= a.r.Hi {
			return fmt.Errorf("%s id range [%d,%d) is empty", a.wave, a.r.Lo, a.r.Hi)
		}
	}
	for i, a := range all {
		for _, b := range all[i+1:] {
			if a.r.Lo < b.r.Hi && b.r.Lo < a.r.Hi {
				return fmt.Errorf("%s and %s id ranges overlap", a.wave, b.wave)
			}
		}
	}
	return nil
}
