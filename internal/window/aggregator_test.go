package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavecli/pkg/contracts/domain"
)

func date(day int) time.Time {
	// day 1 = 2021-03-01
	return time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
}

func fptr(v float64) *float64 { return &v }

func dayRecord(day int, ratioTotal *float64) domain.SubjectDay {
	return domain.SubjectDay{
		Subject:    domain.SubjectID(305),
		Wave:       domain.Wave2,
		Date:       date(day),
		RatioTotal: ratioTotal,
	}
}

func event(day int) domain.SurveyEvent {
	return domain.SurveyEvent{
		Subject: domain.SubjectID(305),
		Wave:    domain.Wave2,
		Date:    date(day),
		Score:   3,
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"single", []float64{0.4}, 0.4},
		{"odd", []float64{0.9, 0.1, 0.5}, 0.5},
		{"even averages middle two", []float64{0.1, 0.2, 0.6, 1.0}, 0.4},
		{"unsorted input", []float64{1.0, 0.0, 0.5, 0.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Median(tt.in), 1e-12)
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	in := []float64{0.9, 0.1, 0.5}
	Median(in)
	assert.Equal(t, []float64{0.9, 0.1, 0.5}, in)
}

func TestAggregateWindowContents(t *testing.T) {
	agg := NewAggregator(14, nil)

	// Records on days 1..20. Event on day 16: its window is days 2..15.
	var records []domain.SubjectDay
	for d := 1; d <= 20; d++ {
		records = append(records, dayRecord(d, fptr(float64(d)/100)))
	}

	sets, stats := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)
	assert.Equal(t, 1, stats.Windowed)
	assert.Equal(t, 0, stats.InsufficientHistory)

	st := sets[0].Stats[domain.FeatureRatioTotal]
	assert.Equal(t, 0, st.Missing)
	require.NotNil(t, st.Median)
	// Days 2..15, values d/100: median = (8+9)/2 / 100.
	assert.InDelta(t, 0.085, *st.Median, 1e-12)
}

func TestAggregateExcludesEventDate(t *testing.T) {
	agg := NewAggregator(14, nil)

	// Only the event day itself has a record; the window must not see it.
	records := []domain.SubjectDay{
		dayRecord(1, fptr(0.2)),
		dayRecord(16, fptr(0.99)),
	}

	sets, _ := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)

	st := sets[0].Stats[domain.FeatureRatioTotal]
	assert.Equal(t, 14, st.Missing) // the event-day record sits outside the window
	assert.Nil(t, st.Median)
}

func TestAggregateInsufficientHistory(t *testing.T) {
	agg := NewAggregator(14, nil)

	// Earliest record day 90, event day 100: window starts day 86,
	// before any history exists, so the event is dropped.
	records := []domain.SubjectDay{
		dayRecord(90, fptr(0.3)),
		dayRecord(95, fptr(0.4)),
	}

	sets, stats := agg.Aggregate([]domain.SurveyEvent{event(100)}, records)
	assert.Empty(t, sets)
	assert.Equal(t, 1, stats.Events)
	assert.Equal(t, 0, stats.Windowed)
	assert.Equal(t, 1, stats.InsufficientHistory)
}

func TestAggregateHistoryBoundary(t *testing.T) {
	agg := NewAggregator(14, nil)

	// Earliest record exactly at event_date - W is sufficient history.
	records := []domain.SubjectDay{dayRecord(2, fptr(0.3))}

	sets, stats := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)
	assert.Equal(t, 0, stats.InsufficientHistory)

	// One day later and the same event no longer qualifies.
	records = []domain.SubjectDay{dayRecord(3, fptr(0.3))}
	sets, stats = agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	assert.Empty(t, sets)
	assert.Equal(t, 1, stats.InsufficientHistory)
}

func TestAggregateNoRecords(t *testing.T) {
	agg := NewAggregator(14, nil)

	sets, stats := agg.Aggregate([]domain.SurveyEvent{event(16), event(30)}, nil)
	assert.Empty(t, sets)
	assert.Equal(t, 2, stats.InsufficientHistory)
}

func TestAggregateMissingAccounting(t *testing.T) {
	agg := NewAggregator(14, nil)

	// History reaches back far enough, but inside the window only three
	// days exist and one of them holds a null feature value.
	records := []domain.SubjectDay{
		dayRecord(1, fptr(0.1)), // establishes history, outside window
		dayRecord(5, fptr(0.2)),
		dayRecord(6, nil), // present day, null feature
		dayRecord(10, fptr(0.6)),
	}

	sets, _ := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)

	st := sets[0].Stats[domain.FeatureRatioTotal]
	assert.Equal(t, 12, st.Missing) // 11 absent days + 1 null value
	require.NotNil(t, st.Median)
	assert.InDelta(t, 0.4, *st.Median, 1e-12)
	assert.False(t, sets[0].Complete())
}

func TestAggregateFullyMissingFeature(t *testing.T) {
	agg := NewAggregator(14, nil)

	// Every in-window day exists but the feature is null throughout:
	// the median is undefined, not zero.
	var records []domain.SubjectDay
	for d := 2; d <= 15; d++ {
		records = append(records, dayRecord(d, nil))
	}

	sets, _ := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)

	st := sets[0].Stats[domain.FeatureRatioTotal]
	assert.Nil(t, st.Median)
	assert.Equal(t, 14, st.Missing)
	assert.False(t, sets[0].Complete())
}

func TestAggregateCompleteWindow(t *testing.T) {
	agg := NewAggregator(14, nil)

	var records []domain.SubjectDay
	for d := 2; d <= 15; d++ {
		v := 0.5
		records = append(records, domain.SubjectDay{
			Subject:    domain.SubjectID(305),
			Wave:       domain.Wave2,
			Date:       date(d),
			TimeAtHome: fptr(600),
			AwayTime:   fptr(840),
			RatioTotal: &v,
			RatioHome:  &v,
			RatioAway:  &v,
		})
	}

	sets, _ := agg.Aggregate([]domain.SurveyEvent{event(16)}, records)
	require.Len(t, sets, 1)
	assert.True(t, sets[0].Complete())
	for _, f := range domain.AllFeatures() {
		assert.Equal(t, 0, sets[0].Stats[f].Missing, "feature %s", f)
	}
}
