// Command scheduler-run is a thin CLI around the scheduling engine: it
// decodes the three input tables from JSON files, runs one optimization
// pass, and encodes the four output views back to JSON. It carries no
// HTTP surface, persistence, or input validation of its own — all three
// are out of scope for this engine (spec.md §1) and belong to whatever
// system produces the input files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/noah-isme/sma-scheduling-engine/internal/engine"
	"github.com/noah-isme/sma-scheduling-engine/pkg/config"
	"github.com/noah-isme/sma-scheduling-engine/pkg/logger"
	"github.com/noah-isme/sma-scheduling-engine/pkg/metrics"
)

type output struct {
	Assigned        []engine.Assignment            `json:"assigned"`
	Unassigned      []engine.Unassignment          `json:"unassigned"`
	Rosters         map[string][]string            `json:"rosters"`
	Schedules       map[string]engine.ScheduleGrid `json:"schedules"`
	TimeLimited     bool                           `json:"time_limited"`
	SolveDurationMS int64                          `json:"solve_duration_ms"`
}

func main() {
	studentsPath := flag.String("students", "", "path to the student requests JSON file")
	schedulesPath := flag.String("schedules", "", "path to the section schedules JSON file")
	periodsPath := flag.String("periods", "", "path to the section periods JSON file")
	outPath := flag.String("out", "", "path to write the result JSON to (defaults to stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	collector := metrics.New()

	var students []engine.StudentRequestRow
	var schedules []engine.SectionRow
	var periods []engine.PeriodRow
	if err := decodeFile(*studentsPath, &students); err != nil {
		logr.Sugar().Fatalw("failed to read student requests", "error", err)
	}
	if err := decodeFile(*schedulesPath, &schedules); err != nil {
		logr.Sugar().Fatalw("failed to read section schedules", "error", err)
	}
	if err := decodeFile(*periodsPath, &periods); err != nil {
		logr.Sugar().Fatalw("failed to read section periods", "error", err)
	}

	run := engine.NewRun(engine.Options{
		BalanceWeight:   cfg.Scheduler.BalanceWeight,
		FairnessWeight:  cfg.Scheduler.FairnessWeight,
		SolverTimeLimit: cfg.Scheduler.SolverTimeLimit,
		SolverBackend:   cfg.Scheduler.SolverBackend,
	}, logr, collector)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.SolverTimeLimit+30*time.Second)
	defer cancel()

	if err := run.Execute(ctx, students, schedules, periods); err != nil {
		logr.Sugar().Fatalw("run failed", "error", err)
	}

	rosters := make(map[string][]string)
	for key, names := range run.AllClassRosters() {
		rosters[key.String()] = names
	}

	result := output{
		Assigned:        run.AssignedCourses(),
		Unassigned:      run.UnassignedCourses(),
		Rosters:         rosters,
		Schedules:       run.AllStudentSchedules(),
		TimeLimited:     run.TimeLimited(),
		SolveDurationMS: run.SolveDuration().Milliseconds(),
	}

	w := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logr.Sugar().Fatalw("failed to open output file", "error", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logr.Sugar().Fatalw("failed to encode result", "error", err)
	}
}

func decodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
