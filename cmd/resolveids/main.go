package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"wavecli/internal/config"
	"wavecli/internal/identity"
	"wavecli/internal/infrastructure"
	"wavecli/internal/loader"
	"wavecli/pkg/contracts/domain"
)

// resolveids runs only the identity-resolution step and prints the
// resolved equivalence classes as CSV, for auditing the external
// mapping table before a full pipeline run.
func main() {
	inDir := flag.String("in", "", "input directory with per-wave tables (defaults to config input_dir)")
	out := flag.String("out", "", "output CSV path (defaults to stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *inDir != "" {
		cfg.Pipeline.InputDir = *inDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	inputs, err := loader.DiscoverInputs(cfg.Pipeline.InputDir)
	if err != nil {
		logger.Error("Failed to discover input tables", "error", err)
		os.Exit(1)
	}

	observed, err := collectObservedIDs(inputs, logger)
	if err != nil {
		logger.Error("Failed to load observed ids", "error", err)
		os.Exit(1)
	}

	mapping, _, err := loader.LoadMapping(inputs.Mapping, logger)
	if err != nil {
		logger.Error("Failed to load mapping table", "error", err)
		os.Exit(1)
	}

	resolution, err := identity.Resolve(observed, mapping, cfg.Identity.Ranges, logger)
	if err != nil {
		var contradiction *identity.ContradictionError
		if errors.As(err, &contradiction) {
			logger.Error("Identity contradiction in mapping table",
				slog.Int64("id", int64(contradiction.ID)),
				slog.Int64("anchor_a", int64(contradiction.AnchorA)),
				slog.Int64("anchor_b", int64(contradiction.AnchorB)),
			)
		} else {
			logger.Error("Identity resolution failed", "error", err)
		}
		os.Exit(1)
	}

	if err := writeClasses(*out, resolution); err != nil {
		logger.Error("Failed to write classes", "error", err)
		os.Exit(1)
	}
}

// collectObservedIDs loads every wave's survey, usage and location
// tables and returns the distinct subject ids they contain.
func collectObservedIDs(inputs loader.Inputs, logger *slog.Logger) ([]domain.SubjectID, error) {
	seen := make(map[domain.SubjectID]bool)

	for _, wf := range inputs.Waves {
		events, _, err := loader.LoadSurvey(wf.Survey, wf.Wave, logger)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			seen[ev.Subject] = true
		}

		usage, _, err := loader.LoadUsage(wf.Usage, wf.Wave, logger)
		if err != nil {
			return nil, err
		}
		for _, u := range usage {
			seen[u.Subject] = true
		}

		location, _, err := loader.LoadLocation(wf.Location, wf.Wave, logger)
		if err != nil {
			return nil, err
		}
		for _, l := range location {
			seen[l.Subject] = true
		}
	}

	ids := make([]domain.SubjectID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func writeClasses(path string, resolution *identity.Resolution) error {
	out := os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()

	if err := writer.Write([]string{"canonical_id", "member_id"}); err != nil {
		return err
	}

	classes := resolution.Classes()
	canonicals := make([]domain.SubjectID, 0, len(classes))
	for canon := range classes {
		canonicals = append(canonicals, canon)
	}
	sort.Slice(canonicals, func(i, j int) bool { return canonicals[i] < canonicals[j] })

	for _, canon := range canonicals {
		for _, member := range classes[canon] {
			record := []string{
				strconv.FormatInt(int64(canon), 10),
				strconv.FormatInt(int64(member), 10),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return writer.Error()
}
