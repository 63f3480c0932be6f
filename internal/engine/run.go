package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-scheduling-engine/pkg/errors"
	"github.com/noah-isme/sma-scheduling-engine/pkg/metrics"
)

// Options governs one optimization run: the two penalty weights and the
// solver's wall-clock budget and backend selection (spec.md §6).
//
// The weights are not checked against the assignment term: a large
// enough BalanceWeight or FairnessWeight can make the optimum give up an
// assignment in exchange for better balance or a narrower spread.
type Options struct {
	BalanceWeight   float64
	FairnessWeight  float64
	SolverTimeLimit time.Duration
	SolverBackend   string
}

// stage is the one-way run state machine: Unbuilt -> Built -> Solved ->
// Read. Every later stage requires the ones before it.
type stage int

const (
	stageUnbuilt stage = iota
	stageBuilt
	stageSolved
	stageRead
)

// Run is a single optimization pass over one dataset. It is not safe for
// concurrent use by multiple goroutines — callers issuing concurrent
// runs should construct one Run per run.
type Run struct {
	id      string
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Collector

	stage stage

	ix    *indices
	built *builtModel
	state *solutionState

	timeLimited   bool
	solveDuration time.Duration
}

// NewRun constructs a Run. A nil logger is replaced with a no-op logger,
// matching the teacher's "never require a logger to avoid a nil panic"
// convention; a nil metrics collector is kept as is, and its methods do
// nothing on a nil receiver.
func NewRun(opts Options, log *zap.Logger, collector *metrics.Collector) *Run {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SolverTimeLimit <= 0 {
		opts.SolverTimeLimit = 10 * time.Second
	}
	id := uuid.NewString()
	return &Run{
		id:      id,
		opts:    opts,
		logger:  log.With(zap.String("run_id", id)),
		metrics: collector,
	}
}

// Execute builds the MILP, invokes the solver, and reads the solution
// into the Run. It may be called exactly once per Run; a second call
// panics, since re-executing a Run is always a programmer error rather
// than a recoverable condition.
func (r *Run) Execute(ctx context.Context, students []StudentRequestRow, schedules []SectionRow, periods []PeriodRow) error {
	if r.stage != stageUnbuilt {
		panic("engine: Run.Execute called more than once")
	}

	start := time.Now()
	r.logger.Info("run started", zap.String("run_id", r.id), zap.Int("students", len(students)), zap.Int("sections", len(schedules)))

	r.ix = buildIndices(students, schedules, periods)
	r.built = buildModel(r.ix, r.opts)
	r.stage = stageBuilt

	result, err := solve(ctx, r.built, r.opts)
	if err != nil {
		r.logger.Error("solve failed", zap.String("run_id", r.id), zap.Error(err))
		return err
	}
	r.stage = stageSolved
	r.timeLimited = result.timeLimited
	r.solveDuration = result.duration

	r.state = readSolution(r.built, result.solution)
	r.stage = stageRead

	r.metrics.ObserveSolve(result.duration, result.timeLimited)
	r.logger.Info("run finished",
		zap.String("run_id", r.id),
		zap.Duration("solve_duration", result.duration),
		zap.Bool("time_limited", result.timeLimited),
		zap.Duration("total_duration", time.Since(start)),
	)

	assigned := assignedList(r.ix, r.state)
	unassigned := explainUnassigned(r.ix, r.state)
	byReason := make(map[string]int, 4)
	for _, u := range unassigned {
		byReason[string(u.Reason)]++
	}
	r.metrics.ObserveAssignments(len(assigned), byReason)
	r.metrics.ObserveSectionDeviation(totalDeviation(r.ix, r.state))

	return nil
}

// requireRead panics if the Run has not reached the Read stage — every
// query method depends on a completed solve, and calling one earlier is
// a programmer error, not a user-facing condition (spec.md §7).
func (r *Run) requireRead() {
	if r.stage != stageRead {
		panic("engine: Run query method called before Execute completed")
	}
}

// AssignedCourses returns every realized (student, course, section)
// assignment, sorted by student then course.
func (r *Run) AssignedCourses() []Assignment {
	r.requireRead()
	return assignedList(r.ix, r.state)
}

// UnassignedCourses returns every requested-but-unassigned course with
// its classified reason.
func (r *Run) UnassignedCourses() []Unassignment {
	r.requireRead()
	return explainUnassigned(r.ix, r.state)
}

// ClassRoster returns the realized roster for one (course, section). If
// no such section exists it returns a copy of appErrors.ErrQueryMiss
// (same Code, section-specific Message).
func (r *Run) ClassRoster(course string, section int) ([]string, error) {
	r.requireRead()
	key := SectionKey{Course: course, Section: section}
	names, ok := roster(r.ix, r.state, key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrQueryMiss, "no such section: "+key.String())
	}
	return names, nil
}

// AllClassRosters returns every non-empty section's roster.
func (r *Run) AllClassRosters() map[SectionKey][]string {
	r.requireRead()
	return allRosters(r.ix, r.state)
}

// StudentSchedule returns one student's weekly grid. If the student never
// appears in the run's input it returns a copy of appErrors.ErrQueryMiss
// (same Code, student-specific Message).
func (r *Run) StudentSchedule(student string) (ScheduleGrid, error) {
	r.requireRead()
	grid, ok := studentSchedule(r.ix, r.state, student)
	if !ok {
		return ScheduleGrid{}, appErrors.Clone(appErrors.ErrQueryMiss, "no such student: "+student)
	}
	return grid, nil
}

// AllStudentSchedules returns the grid for every student in the run's
// input.
func (r *Run) AllStudentSchedules() map[string]ScheduleGrid {
	r.requireRead()
	return allStudentSchedules(r.ix, r.state)
}

// TimeLimited reports whether the solver exhausted its wall-clock
// budget before proving optimality. This is not an error: the best
// incumbent found within budget is still a valid, usable solution.
func (r *Run) TimeLimited() bool {
	r.requireRead()
	return r.timeLimited
}

// SolveDuration returns how long the solver call actually took.
func (r *Run) SolveDuration() time.Duration {
	r.requireRead()
	return r.solveDuration
}

func totalDeviation(ix *indices, state *solutionState) float64 {
	var total float64
	for c := 0; c < len(ix.courseSections); c++ {
		sections := ix.courseSections[c]
		n := float64(len(sections))
		if n == 0 {
			continue
		}
		var sum float64
		sizes := make([]float64, len(sections))
		for i, sec := range sections {
			sizes[i] = float64(len(state.sectionMembers[sec]))
			sum += sizes[i]
		}
		mean := sum / n
		for _, size := range sizes {
			diff := size - mean
			if diff < 0 {
				diff = -diff
			}
			total += diff
		}
	}
	return total
}
