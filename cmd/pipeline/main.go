package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"wavecli/internal/config"
	"wavecli/internal/exporter"
	"wavecli/internal/infrastructure"
	"wavecli/internal/loader"
	"wavecli/internal/pipeline"
	"wavecli/internal/store"
	"wavecli/pkg/contracts"
	"wavecli/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", "", "input directory with per-wave tables (defaults to config input_dir)")
	outDir := flag.String("out", "", "output directory for the analysis table and run report (defaults to config output_dir)")
	dbPath := flag.String("db", "", "optional SQLite database path for persisting the run (defaults to config db_path)")
	windowDays := flag.Int("window", 0, "trailing window length in days (defaults to config window_days)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		info := contracts.GetVersionInfo()
		fmt.Printf("  build: %s  commit: %s  go: %s  data format: %s\n",
			info.BuildTime, info.GitCommit, info.GoVersion, info.DataFormat)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if *inDir != "" {
		cfg.Pipeline.InputDir = *inDir
	}
	if *outDir != "" {
		cfg.Pipeline.OutputDir = *outDir
	}
	if *dbPath != "" {
		cfg.Pipeline.DBPath = *dbPath
	}
	if *windowDays > 0 {
		cfg.Pipeline.WindowDays = *windowDays
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting analysis pipeline",
		slog.String("input_dir", cfg.Pipeline.InputDir),
		slog.String("output_dir", cfg.Pipeline.OutputDir),
		slog.Int("window_days", cfg.Pipeline.WindowDays),
	)

	inputs, err := loader.DiscoverInputs(cfg.Pipeline.InputDir)
	if err != nil {
		logger.Error("Failed to discover input tables", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rows, report, err := pipeline.NewRunner(cfg, logger).Run(ctx, inputs)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}

	analysisPath := filepath.Join(cfg.Pipeline.OutputDir, "analysis.csv")
	if err := exporter.WriteAnalysisCSV(analysisPath, rows, logger); err != nil {
		logger.Error("Failed to write analysis table", "error", err)
		os.Exit(1)
	}

	reportPath := filepath.Join(cfg.Pipeline.OutputDir, "run_report.json")
	if err := exporter.WriteRunReport(reportPath, report, logger); err != nil {
		logger.Error("Failed to write run report", "error", err)
		os.Exit(1)
	}

	if cfg.Pipeline.DBPath != "" {
		if err := persistRun(cfg.Pipeline.DBPath, report, rows, logger); err != nil {
			logger.Error("Failed to persist run", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Pipeline finished",
		slog.String("run_id", report.RunID),
		slog.Int("analysis_rows", report.AnalysisRows),
		slog.String("analysis_csv", analysisPath),
		slog.String("run_report", reportPath),
	)
}

func persistRun(dbPath string, report *pipeline.RunReport, rows []domain.AnalysisRow, logger *slog.Logger) error {
	s, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	summary := store.RunSummary{
		RunID:           report.RunID,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		WindowDays:      report.WindowDays,
		ObservedIDs:     report.ObservedIDs,
		IdentityClasses: report.IdentityClasses,
		AnalysisRows:    report.AnalysisRows,
	}
	if err := s.SaveRun(summary, report, rows); err != nil {
		return err
	}

	logger.Info("Persisted run to database",
		slog.String("db_path", dbPath),
		slog.String("run_id", report.RunID),
	)
	return nil
}
