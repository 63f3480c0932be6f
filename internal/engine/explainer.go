package engine

// explainUnassigned classifies every (student, requested course) pair
// with no realized assignment, per spec §4.5. It inspects the realized
// solution — not the model's feasible region — so the same realized
// schedule determines both this classification and the student-schedule
// grid a reader would see.
func explainUnassigned(ix *indices, state *solutionState) []Unassignment {
	var out []Unassignment
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		assignedSlots := studentAssignedSlots(ix, state, sid)
		assignedCourses := make(map[CourseID]bool, len(state.assignedSections[sid]))
		for _, sec := range state.assignedSections[sid] {
			assignedCourses[ix.sectionCourse[sec]] = true
		}

		for _, c := range ix.studentRequests[sid] {
			if assignedCourses[c] {
				continue
			}
			reason := classify(ix, state, c, assignedSlots)
			out = append(out, Unassignment{
				Student: ix.studentName(sid),
				Course:  ix.courseName(c),
				Reason:  reason,
			})
		}
	}
	return out
}

func studentAssignedSlots(ix *indices, state *solutionState, sid StudentID) map[MeetingSlot]bool {
	slots := make(map[MeetingSlot]bool)
	for _, sec := range state.assignedSections[sid] {
		for _, slot := range ix.sectionTimes[sec] {
			slots[slot] = true
		}
	}
	return slots
}

func classify(ix *indices, state *solutionState, course CourseID, assignedSlots map[MeetingSlot]bool) Reason {
	sections := ix.courseSections[course]
	if len(sections) == 0 {
		return ReasonNoSectionsOffered
	}

	hasCapacity := false
	couldFitWithoutCapacity := false
	for _, sec := range sections {
		size := len(state.sectionMembers[sec])
		if size < ix.sectionCap[sec] {
			hasCapacity = true
		}
		if sectionFreeForStudent(ix, sec, assignedSlots) {
			couldFitWithoutCapacity = true
		}
	}

	switch {
	case !hasCapacity:
		return ReasonCapacity
	case !couldFitWithoutCapacity:
		return ReasonTimeConflict
	default:
		return ReasonUnknown
	}
}

func sectionFreeForStudent(ix *indices, sec SectionID, assignedSlots map[MeetingSlot]bool) bool {
	for _, slot := range ix.sectionTimes[sec] {
		if assignedSlots[slot] {
			return false
		}
	}
	return true
}
