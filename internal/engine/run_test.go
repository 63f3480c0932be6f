package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultOptions() Options {
	return Options{
		BalanceWeight:   0.1,
		FairnessWeight:  0.1,
		SolverTimeLimit: 10 * time.Second,
		SolverBackend:   "highs",
	}
}

func TestRunCapacityStarvation(t *testing.T) {
	students := []StudentRequestRow{
		{StudentName: "A", CourseName: "Art"},
		{StudentName: "B", CourseName: "Art"},
		{StudentName: "C", CourseName: "Art"},
	}
	schedules := []SectionRow{{CourseName: "Art", Section: 1, Capacity: 2}}

	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, schedules, nil))

	assigned := run.AssignedCourses()
	unassigned := run.UnassignedCourses()

	assert.Len(t, assigned, 2)
	require.Len(t, unassigned, 1)
	assert.Equal(t, ReasonCapacity, unassigned[0].Reason)
}

func TestRunTimeConflictStarvation(t *testing.T) {
	students := []StudentRequestRow{
		{StudentName: "A", CourseName: "Math"},
		{StudentName: "A", CourseName: "English"},
	}
	schedules := []SectionRow{
		{CourseName: "Math", Section: 1, Capacity: 30},
		{CourseName: "English", Section: 1, Capacity: 30},
	}
	periods := []PeriodRow{
		{CourseName: "Math", Section: 1, DayOfWeek: "Monday", PeriodNumber: 1},
		{CourseName: "English", Section: 1, DayOfWeek: "Monday", PeriodNumber: 1},
	}

	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, schedules, periods))

	assert.Len(t, run.AssignedCourses(), 1)
	unassigned := run.UnassignedCourses()
	require.Len(t, unassigned, 1)
	assert.Equal(t, ReasonTimeConflict, unassigned[0].Reason)
}

func TestRunCourseWithNoSectionsOffered(t *testing.T) {
	students := []StudentRequestRow{{StudentName: "A", CourseName: "Art"}}

	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, nil, nil))

	assert.Empty(t, run.AssignedCourses())
	unassigned := run.UnassignedCourses()
	require.Len(t, unassigned, 1)
	assert.Equal(t, ReasonNoSectionsOffered, unassigned[0].Reason)
}

func TestRunZeroStudents(t *testing.T) {
	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), nil, nil, nil))

	assert.Empty(t, run.AssignedCourses())
	assert.Empty(t, run.UnassignedCourses())
}

func TestRunCapacityExceedsDemandAssignsEveryone(t *testing.T) {
	students := []StudentRequestRow{
		{StudentName: "A", CourseName: "Art"},
		{StudentName: "B", CourseName: "Art"},
	}
	schedules := []SectionRow{{CourseName: "Art", Section: 1, Capacity: 10}}

	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, schedules, nil))

	assert.Len(t, run.AssignedCourses(), 2)
	assert.Empty(t, run.UnassignedCourses())
}

func TestRunFairnessSpreadNarrowsMaxMinUnassigned(t *testing.T) {
	// Three students each request five single-section courses, but two of
	// the five sections are too small for every requester to fit. Absent
	// the fairness term the solver could dump every shortfall on one
	// student; with a nonzero fairness weight the spread across students
	// must be minimized.
	var students []StudentRequestRow
	var schedules []SectionRow
	names := []string{"A", "B", "C"}
	for i := 1; i <= 5; i++ {
		course := fmt.Sprintf("Course%d", i)
		capacity := 3
		if i <= 2 {
			capacity = 2 // two of five courses can only fit 2 of 3 students
		}
		schedules = append(schedules, SectionRow{CourseName: course, Section: 1, Capacity: capacity})
		for _, name := range names {
			students = append(students, StudentRequestRow{StudentName: name, CourseName: course})
		}
	}

	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, schedules, nil))

	unassignedByStudent := make(map[string]int)
	for _, u := range run.UnassignedCourses() {
		unassignedByStudent[u.Student]++
	}
	min, max := -1, -1
	for _, name := range names {
		count := unassignedByStudent[name]
		if min == -1 || count < min {
			min = count
		}
		if count > max {
			max = count
		}
	}
	assert.LessOrEqual(t, max-min, 1, "fairness weight should keep the unassigned spread tight")
}

func TestRunSolverTimeoutStillProducesFeasibleAssignment(t *testing.T) {
	var students []StudentRequestRow
	var schedules []SectionRow
	for c := 0; c < 40; c++ {
		course := fmt.Sprintf("Course%d", c)
		schedules = append(schedules, SectionRow{CourseName: course, Section: 1, Capacity: 50})
		for s := 0; s < 200; s++ {
			students = append(students, StudentRequestRow{StudentName: fmt.Sprintf("Student%d", s), CourseName: course})
		}
	}

	opts := defaultOptions()
	opts.SolverTimeLimit = time.Nanosecond

	run := NewRun(opts, zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), students, schedules, nil))

	// A vacuously-feasible (all-zero) incumbent is always available within
	// any positive time budget, so the run must still produce a solution.
	_ = run.TimeLimited()
	sectionSizes := make(map[string]int)
	for _, a := range run.AssignedCourses() {
		sectionSizes[a.Course]++
	}
	for course, size := range sectionSizes {
		assert.LessOrEqual(t, size, 50, "section of %s is over capacity", course)
	}
}

func TestRunQueryBeforeExecutePanics(t *testing.T) {
	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	assert.Panics(t, func() {
		run.AssignedCourses()
	})
}

func TestRunExecuteTwicePanics(t *testing.T) {
	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), nil, nil, nil))
	assert.Panics(t, func() {
		_ = run.Execute(context.Background(), nil, nil, nil)
	})
}

func TestRunClassRosterMissingSection(t *testing.T) {
	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), nil, nil, nil))

	_, err := run.ClassRoster("Nonexistent", 1)
	assert.Error(t, err)
}

func TestRunStudentScheduleMissingStudent(t *testing.T) {
	run := NewRun(defaultOptions(), zap.NewNop(), nil)
	require.NoError(t, run.Execute(context.Background(), nil, nil, nil))

	_, err := run.StudentSchedule("nobody")
	assert.Error(t, err)
}
