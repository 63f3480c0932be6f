package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNoSectionsOffered(t *testing.T) {
	ix := buildIndices([]StudentRequestRow{{StudentName: "A", CourseName: "Art"}}, nil, nil)
	artID := ix.courseByID["Art"]

	reason := classify(ix, &solutionState{}, artID, nil)
	assert.Equal(t, ReasonNoSectionsOffered, reason)
}

func TestClassifyCapacityWhenEverySectionIsFull(t *testing.T) {
	schedules := []SectionRow{{CourseName: "Art", Section: 1, Capacity: 1}}
	students := []StudentRequestRow{
		{StudentName: "A", CourseName: "Art"},
		{StudentName: "B", CourseName: "Art"},
	}
	ix := buildIndices(students, schedules, nil)
	artID := ix.courseByID["Art"]
	artSec := ix.sectionByKey[SectionKey{Course: "Art", Section: 1}]

	state := &solutionState{
		sectionMembers: map[SectionID][]StudentID{artSec: {ix.studentByID["A"]}},
	}

	reason := classify(ix, state, artID, map[MeetingSlot]bool{})
	assert.Equal(t, ReasonCapacity, reason)
}

func TestClassifyTimeConflictWhenCapacityAvailableButSlotTaken(t *testing.T) {
	schedules := []SectionRow{{CourseName: "Art", Section: 1, Capacity: 10}}
	periods := []PeriodRow{{CourseName: "Art", Section: 1, DayOfWeek: "Monday", PeriodNumber: 1}}
	ix := buildIndices(nil, schedules, periods)
	artID := ix.courseByID["Art"]

	state := &solutionState{sectionMembers: map[SectionID][]StudentID{}}
	assignedSlots := map[MeetingSlot]bool{{Day: "Monday", Period: 1}: true}

	reason := classify(ix, state, artID, assignedSlots)
	assert.Equal(t, ReasonTimeConflict, reason)
}

func TestClassifyUnknownWhenNeitherLocalCauseFires(t *testing.T) {
	schedules := []SectionRow{{CourseName: "Art", Section: 1, Capacity: 10}}
	periods := []PeriodRow{{CourseName: "Art", Section: 1, DayOfWeek: "Monday", PeriodNumber: 1}}
	ix := buildIndices(nil, schedules, periods)
	artID := ix.courseByID["Art"]

	state := &solutionState{sectionMembers: map[SectionID][]StudentID{}}

	reason := classify(ix, state, artID, map[MeetingSlot]bool{})
	assert.Equal(t, ReasonUnknown, reason)
}

func TestExplainUnassignedSkipsAssignedCourses(t *testing.T) {
	students := []StudentRequestRow{
		{StudentName: "A", CourseName: "Math"},
		{StudentName: "A", CourseName: "English"},
	}
	schedules := []SectionRow{
		{CourseName: "Math", Section: 1, Capacity: 10},
		{CourseName: "English", Section: 1, Capacity: 10},
	}
	ix := buildIndices(students, schedules, nil)
	mathSec := ix.sectionByKey[SectionKey{Course: "Math", Section: 1}]
	aID := ix.studentByID["A"]

	state := &solutionState{
		assignedSections: map[StudentID][]SectionID{aID: {mathSec}},
		sectionMembers:   map[SectionID][]StudentID{mathSec: {aID}},
	}

	unassigned := explainUnassigned(ix, state)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "English", unassigned[0].Course)
}
