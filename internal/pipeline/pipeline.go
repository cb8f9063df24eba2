package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wavecli/internal/assemble"
	"wavecli/internal/config"
	"wavecli/internal/features"
	"wavecli/internal/identity"
	"wavecli/internal/loader"
	"wavecli/internal/window"
	"wavecli/pkg/contracts/domain"
)

// Runner executes the batch pipeline: load, derive, window, resolve,
// assemble. Each stage consumes an immutable snapshot of the previous
// stage's output; the derive and window stages fan out per subject since
// subjects are independent units.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner creates a pipeline runner. A nil logger falls back to
// slog.Default().
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// RunReport is the audit record of one pipeline run: what was loaded
// and how many rows each gate dropped. The pipeline always runs to
// completion on well-formed inputs and emits this alongside the table.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	WindowDays int       `json:"window_days"`

	Loads  []loader.LoadStats    `json:"loads"`
	Derive features.DeriveStats  `json:"derive"`
	Window window.AggregateStats `json:"window"`
	Gates  assemble.GateReport   `json:"gates"`

	ObservedIDs     int       `json:"observed_ids"`
	IdentityClasses int       `json:"identity_classes"`
	StudyStart      time.Time `json:"study_start"`
	AnalysisRows    int       `json:"analysis_rows"`
}

// Run executes the whole pipeline over the discovered inputs and returns
// the analysis table with its run report.
func (r *Runner) Run(ctx context.Context, in loader.Inputs) ([]domain.AnalysisRow, *RunReport, error) {
	report := &RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		WindowDays: r.cfg.Pipeline.WindowDays,
	}
	logger := r.logger.With(slog.String("run_id", report.RunID))

	logger.InfoContext(ctx, "starting pipeline run",
		slog.Int("window_days", report.WindowDays),
		slog.Int("waves", len(in.Waves)),
	)

	events, observations, err := r.loadWaves(in, report, logger)
	if err != nil {
		return nil, nil, err
	}

	studyStart, ok := studyStartDate(observations, events)
	if !ok {
		return nil, nil, fmt.Errorf("no observations or survey events loaded")
	}
	report.StudyStart = studyStart

	days, deriveStats, err := r.deriveAll(ctx, observations, logger)
	if err != nil {
		return nil, nil, err
	}
	report.Derive = deriveStats

	sets, windowStats, err := r.windowAll(ctx, events, days, logger)
	if err != nil {
		return nil, nil, err
	}
	report.Window = windowStats

	mapping, mapStats, err := loader.LoadMapping(in.Mapping, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load mapping table: %w", err)
	}
	report.Loads = append(report.Loads, mapStats)

	demographics, demoStats, err := loader.LoadDemographics(in.Demographics, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load demographics table: %w", err)
	}
	report.Loads = append(report.Loads, demoStats)

	observed := observedIDs(observations, events)
	report.ObservedIDs = len(observed)

	resolution, err := identity.Resolve(observed, mapping, r.cfg.Identity.Ranges, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve identities: %w", err)
	}
	report.IdentityClasses = len(resolution.Classes())

	rows, gates := assemble.NewAssembler(logger).Assemble(sets, resolution, demographics, studyStart)
	report.Gates = gates
	report.AnalysisRows = len(rows)
	report.FinishedAt = time.Now().UTC()

	logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("analysis_rows", len(rows)),
		slog.Int("events_insufficient_history", windowStats.InsufficientHistory),
		slog.Int("rows_incomplete_window", gates.IncompleteWindow),
		slog.Int("rows_missing_covariate", gates.MissingCovariate),
		slog.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)

	return rows, report, nil
}

// loadWaves reads every wave's survey, usage and location tables and
// joins usage with location into raw day observations.
func (r *Runner) loadWaves(in loader.Inputs, report *RunReport, logger *slog.Logger) ([]domain.SurveyEvent, []domain.DayObservation, error) {
	var events []domain.SurveyEvent
	var observations []domain.DayObservation

	for _, wf := range in.Waves {
		ev, stats, err := loader.LoadSurvey(wf.Survey, wf.Wave, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s survey table: %w", wf.Wave, err)
		}
		report.Loads = append(report.Loads, stats)
		events = append(events, ev...)

		usage, stats, err := loader.LoadUsage(wf.Usage, wf.Wave, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s usage table: %w", wf.Wave, err)
		}
		report.Loads = append(report.Loads, stats)

		location, stats, err := loader.LoadLocation(wf.Location, wf.Wave, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s location table: %w", wf.Wave, err)
		}
		report.Loads = append(report.Loads, stats)

		observations = append(observations, loader.JoinDays(usage, location)...)
	}

	return events, observations, nil
}

type subjectWave struct {
	subject domain.SubjectID
	wave    domain.Wave
}

// deriveAll runs the feature deriver over the observations, sharded by
// subject-wave. Subjects are independent, so shard order is irrelevant;
// the merged result is re-sorted for determinism.
func (r *Runner) deriveAll(ctx context.Context, observations []domain.DayObservation, logger *slog.Logger) ([]domain.SubjectDay, features.DeriveStats, error) {
	shards := make(map[subjectWave][]domain.DayObservation)
	for _, o := range observations {
		k := subjectWave{o.Subject, o.Wave}
		shards[k] = append(shards[k], o)
	}

	deriver := features.NewDeriver(logger)

	var mu sync.Mutex
	merged := features.DeriveStats{ByReason: make(map[features.RejectReason]int)}
	var days []domain.SubjectDay

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Pipeline.Concurrency)
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			derived, stats := deriver.DeriveAll(shard)

			mu.Lock()
			defer mu.Unlock()
			days = append(days, derived...)
			merged.Input += stats.Input
			merged.Derived += stats.Derived
			merged.Rejected += stats.Rejected
			for reason, n := range stats.ByReason {
				merged.ByReason[reason] += n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, features.DeriveStats{}, err
	}

	sortDays(days)

	return days, merged, nil
}

// windowAll aggregates trailing windows per subject-wave, in parallel.
func (r *Runner) windowAll(ctx context.Context, events []domain.SurveyEvent, days []domain.SubjectDay, logger *slog.Logger) ([]domain.WindowedFeatureSet, window.AggregateStats, error) {
	eventShards := make(map[subjectWave][]domain.SurveyEvent)
	for _, ev := range events {
		k := subjectWave{ev.Subject, ev.Wave}
		eventShards[k] = append(eventShards[k], ev)
	}
	dayShards := make(map[subjectWave][]domain.SubjectDay)
	for _, d := range days {
		k := subjectWave{d.Subject, d.Wave}
		dayShards[k] = append(dayShards[k], d)
	}

	agg := window.NewAggregator(r.cfg.Pipeline.WindowDays, logger)

	var mu sync.Mutex
	var merged window.AggregateStats
	var sets []domain.WindowedFeatureSet

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Pipeline.Concurrency)
	for key, evs := range eventShards {
		key, evs := key, evs
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			windowed, stats := agg.Aggregate(evs, dayShards[key])

			mu.Lock()
			defer mu.Unlock()
			sets = append(sets, windowed...)
			merged.Events += stats.Events
			merged.Windowed += stats.Windowed
			merged.InsufficientHistory += stats.InsufficientHistory
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, window.AggregateStats{}, err
	}

	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i].Event, sets[j].Event
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Wave != b.Wave {
			return a.Wave < b.Wave
		}
		return a.Date.Before(b.Date)
	})

	return sets, merged, nil
}

// studyStartDate finds the first date observed in the earliest wave,
// across both sensing observations and survey events.
func studyStartDate(observations []domain.DayObservation, events []domain.SurveyEvent) (time.Time, bool) {
	var start time.Time
	var wave domain.Wave
	found := false

	consider := func(w domain.Wave, d time.Time) {
		if !found || w < wave || (w == wave && d.Before(start)) {
			start, wave, found = d, w, true
		}
	}
	for _, o := range observations {
		consider(o.Wave, o.Date)
	}
	for _, ev := range events {
		consider(ev.Wave, ev.Date)
	}

	return start, found
}

// observedIDs collects the distinct subject ids occurring anywhere in
// the observed usage/location/survey data, sorted ascending.
func observedIDs(observations []domain.DayObservation, events []domain.SurveyEvent) []domain.SubjectID {
	seen := make(map[domain.SubjectID]bool)
	for _, o := range observations {
		seen[o.Subject] = true
	}
	for _, ev := range events {
		seen[ev.Subject] = true
	}

	ids := make([]domain.SubjectID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortDays(days []domain.SubjectDay) {
	sort.Slice(days, func(i, j int) bool {
		a, b := days[i], days[j]
		if a.Wave != b.Wave {
			return a.Wave < b.Wave
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Date.Before(b.Date)
	})
}
