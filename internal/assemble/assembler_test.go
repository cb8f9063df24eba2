package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavecli/internal/identity"
	"wavecli/pkg/contracts/domain"
)

func fptr(v float64) *float64 { return &v }

func idptr(v int64) *domain.SubjectID {
	id := domain.SubjectID(v)
	return &id
}

func fullStats(median float64) map[domain.Feature]domain.FeatureStat {
	stats := make(map[domain.Feature]domain.FeatureStat)
	for _, f := range domain.AllFeatures() {
		stats[f] = domain.FeatureStat{Median: fptr(median)}
	}
	return stats
}

func completeSet(subject int64, wave domain.Wave, day time.Time, median float64) domain.WindowedFeatureSet {
	return domain.WindowedFeatureSet{
		Event: domain.SurveyEvent{
			Subject:  domain.SubjectID(subject),
			Wave:     wave,
			Date:     day,
			Score:    4,
			Severity: domain.SeverityModerate,
		},
		Days:  14,
		Stats: fullStats(median),
	}
}

func resolution(t *testing.T, observed []domain.SubjectID, mapping []domain.MappingRow) *identity.Resolution {
	t.Helper()
	res, err := identity.Resolve(observed, mapping, identity.DefaultRanges(), nil)
	require.NoError(t, err)
	return res
}

func TestAssembleJoinsCovariates(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	surveyDate := start.AddDate(2, 0, 0) // exactly 2 calendar years later

	res := resolution(t,
		[]domain.SubjectID{305, 650},
		[]domain.MappingRow{{Wave2: idptr(305), Wave3: idptr(650)}},
	)
	demographics := []domain.Demographic{{Subject: 305, Age: 27}}

	// The wave-3 event must resolve to canonical id 305 and pick up the
	// age recorded under the wave-2 id.
	sets := []domain.WindowedFeatureSet{completeSet(650, domain.Wave3, surveyDate, 0.25)}

	rows, report := NewAssembler(nil).Assemble(sets, res, demographics, start)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, report.Assembled)
	assert.Equal(t, 0, report.MissingCovariate)

	row := rows[0]
	assert.Equal(t, domain.SubjectID(305), row.CanonicalID)
	assert.Equal(t, domain.Wave3, row.Wave)
	assert.Equal(t, 27.0, row.Age)
	assert.Equal(t, domain.SeverityModerate, row.Severity)
	// 731 days over a 365.25-day year.
	assert.InDelta(t, 731.0/365.25, row.YearsElapsed, 1e-9)
	assert.InDelta(t, 0.25, *row.Stats[domain.FeatureRatioTotal].Median, 1e-12)
}

func TestAssembleIncompleteWindowExcluded(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	day := start.AddDate(0, 3, 0)

	res := resolution(t, []domain.SubjectID{305}, nil)
	demographics := []domain.Demographic{{Subject: 305, Age: 31}}

	incomplete := completeSet(305, domain.Wave2, day, 0.5)
	incomplete.Stats[domain.FeatureRatioHome] = domain.FeatureStat{Median: nil, Missing: 14}

	rows, report := NewAssembler(nil).Assemble(
		[]domain.WindowedFeatureSet{incomplete, completeSet(305, domain.Wave2, day.AddDate(0, 1, 0), 0.5)},
		res, demographics, start,
	)

	assert.Len(t, rows, 1)
	assert.Equal(t, 2, report.WindowedSets)
	assert.Equal(t, 1, report.IncompleteWindow)
	assert.Equal(t, 1, report.IncompleteByFeature[domain.FeatureRatioHome])
	assert.Equal(t, 0, report.IncompleteByFeature[domain.FeatureRatioTotal])
}

func TestAssembleMissingCovariateExcluded(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := resolution(t, []domain.SubjectID{305, 410}, nil)
	demographics := []domain.Demographic{{Subject: 305, Age: 31}}

	rows, report := NewAssembler(nil).Assemble(
		[]domain.WindowedFeatureSet{
			completeSet(305, domain.Wave2, start.AddDate(0, 2, 0), 0.4),
			completeSet(410, domain.Wave2, start.AddDate(0, 2, 0), 0.4), // no age on file
		},
		res, demographics, start,
	)

	require.Len(t, rows, 1)
	assert.Equal(t, domain.SubjectID(305), rows[0].CanonicalID)
	assert.Equal(t, 1, report.MissingCovariate)
}

func TestAssembleDeterministicOrder(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := resolution(t, []domain.SubjectID{305, 410}, nil)
	demographics := []domain.Demographic{
		{Subject: 305, Age: 31},
		{Subject: 410, Age: 44},
	}

	sets := []domain.WindowedFeatureSet{
		completeSet(410, domain.Wave2, start.AddDate(0, 6, 0), 0.1),
		completeSet(305, domain.Wave2, start.AddDate(0, 6, 0), 0.2),
		completeSet(305, domain.Wave2, start.AddDate(0, 1, 0), 0.3),
	}

	rows, _ := NewAssembler(nil).Assemble(sets, res, demographics, start)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.SubjectID(305), rows[0].CanonicalID)
	assert.True(t, rows[0].SurveyDate.Before(rows[1].SurveyDate))
	assert.Equal(t, domain.SubjectID(410), rows[2].CanonicalID)
}
