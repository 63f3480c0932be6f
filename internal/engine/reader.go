package engine

import (
	"sort"

	"github.com/nextmv-io/sdk/mip"
)

// assignedThreshold is the spec §4.4 "solver tolerance aware" cutoff for
// reading a binary variable as 1.
const assignedThreshold = 0.5

// solutionState is everything the Solution Reader and Unassignment
// Explainer need after a solve: the raw mip.Solution plus the realized
// assignment, derived once so every reader call is O(1) lookups instead
// of re-scanning every decision variable.
type solutionState struct {
	solution mip.Solution

	// assignedSections: StudentID -> realized sections, sorted.
	assignedSections map[StudentID][]SectionID
	// sectionMembers: SectionID -> realized students, sorted by name via
	// the caller (reader keeps StudentID order here).
	sectionMembers map[SectionID][]StudentID
}

// readSolution walks every decision variable exactly once and buckets
// the ones read as 1 by student and by section.
func readSolution(built *builtModel, sol mip.Solution) *solutionState {
	state := &solutionState{
		solution:         sol,
		assignedSections: make(map[StudentID][]SectionID),
		sectionMembers:   make(map[SectionID][]StudentID),
	}
	for _, key := range built.xKeys {
		if sol.Value(built.x.Get(key)) < assignedThreshold {
			continue
		}
		state.assignedSections[key.Student] = append(state.assignedSections[key.Student], key.Section)
		state.sectionMembers[key.Section] = append(state.sectionMembers[key.Section], key.Student)
	}
	for s := range state.assignedSections {
		sort.Slice(state.assignedSections[s], func(i, j int) bool {
			return state.assignedSections[s][i] < state.assignedSections[s][j]
		})
	}
	return state
}

// assignedList returns every realized (student, course, section) triple,
// spec §4.4's "assigned list".
func assignedList(ix *indices, state *solutionState) []Assignment {
	var out []Assignment
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		sections := state.assignedSections[sid]
		for _, sec := range sections {
			key := ix.sectionKey(sec)
			out = append(out, Assignment{
				Student: ix.studentName(sid),
				Course:  key.Course,
				Section: key.Section,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Student != out[j].Student {
			return out[i].Student < out[j].Student
		}
		if out[i].Course != out[j].Course {
			return out[i].Course < out[j].Course
		}
		return out[i].Section < out[j].Section
	})
	return out
}

// roster returns the realized roster for a (course, section), and
// whether that section exists at all (spec §4.4's not-exists sentinel).
func roster(ix *indices, state *solutionState, key SectionKey) ([]string, bool) {
	secID, ok := ix.sectionByKey[key]
	if !ok {
		return nil, false
	}
	members := state.sectionMembers[secID]
	names := make([]string, 0, len(members))
	for _, sid := range members {
		names = append(names, ix.studentName(sid))
	}
	sort.Strings(names)
	return names, true
}

// allRosters returns every non-empty section's roster, keyed by
// (course, section).
func allRosters(ix *indices, state *solutionState) map[SectionKey][]string {
	out := make(map[SectionKey][]string)
	for secID, members := range state.sectionMembers {
		if len(members) == 0 {
			continue
		}
		names := make([]string, 0, len(members))
		for _, sid := range members {
			names = append(names, ix.studentName(sid))
		}
		sort.Strings(names)
		out[ix.sectionKey(secID)] = names
	}
	return out
}

// studentSchedule builds the (period x day) grid for one student, or
// reports the student is unknown.
func studentSchedule(ix *indices, state *solutionState, studentName string) (ScheduleGrid, bool) {
	sid, ok := ix.studentByID[studentName]
	if !ok {
		return ScheduleGrid{}, false
	}
	return buildGrid(ix, state, sid), true
}

func buildGrid(ix *indices, state *solutionState, sid StudentID) ScheduleGrid {
	grid := ScheduleGrid{
		Periods: append([]int(nil), ix.observedPeriods...),
		Days:    append([]string(nil), ix.observedDays...),
		Cells:   make(map[int]map[string]string, len(ix.observedPeriods)),
	}
	for _, p := range grid.Periods {
		row := make(map[string]string, len(grid.Days))
		for _, d := range grid.Days {
			row[d] = ""
		}
		grid.Cells[p] = row
	}
	for _, sec := range state.assignedSections[sid] {
		key := ix.sectionKey(sec)
		label := key.String()
		for _, slot := range ix.sectionTimes[sec] {
			if row, ok := grid.Cells[slot.Period]; ok {
				row[slot.Day] = label
			}
		}
	}
	return grid
}

// allStudentSchedules builds the grid for every student that appears in
// the students input table.
func allStudentSchedules(ix *indices, state *solutionState) map[string]ScheduleGrid {
	out := make(map[string]ScheduleGrid, ix.studentCount())
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		out[ix.studentName(sid)] = buildGrid(ix, state, sid)
	}
	return out
}
