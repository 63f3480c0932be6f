package engine

import "sort"

// StudentID, CourseID, and SectionID are dense integer identities interned
// by the Index Builder, replacing the source's string-keyed dictionaries
// (spec §9 — "dynamic parameter dictionaries... become explicit indexed
// arrays keyed by compact integer IDs").
type StudentID int
type CourseID int
type SectionID int

// indices are the four solver-friendly lookups the Index Builder produces:
// section_times, course_sections, section_periods, and student_requests,
// plus the dense identity maps needed to de-intern results at emit time.
type indices struct {
	studentNames []string
	studentByID  map[string]StudentID

	courseNames []string
	courseByID  map[string]CourseID

	sections      []SectionKey
	sectionByKey  map[SectionKey]SectionID
	sectionCourse []CourseID
	sectionCap    []int

	// section_times: SectionID -> meeting slots.
	sectionTimes [][]MeetingSlot
	// course_sections: CourseID -> SectionIDs offered for that course.
	courseSections [][]SectionID
	// student_requests: StudentID -> requested CourseIDs.
	studentRequests [][]CourseID

	// dayPeriods is the distinct (day, period) pairs observed in periods
	// rows whose section is in the schedules table. addNoTimeConflicts
	// does not read it; it takes the same observed slots from sectionTimes.
	dayPeriods []MeetingSlot
	// slotSections: MeetingSlot -> SectionIDs meeting at that slot.
	slotSections map[MeetingSlot][]SectionID

	// observedDays/observedPeriods preserve the input's day-encounter
	// order and ascending period order, for StudentSchedule's grid axes.
	observedDays    []string
	observedPeriods []int
}

// buildIndices projects the three raw tabular inputs into the lookups
// every later stage consumes. It never errors: unvalidated or malformed
// rows are the caller's (validator's) responsibility, per spec §1 — this
// stage assumes pre-validated input.
func buildIndices(students []StudentRequestRow, schedules []SectionRow, periods []PeriodRow) *indices {
	ix := &indices{
		studentByID:  make(map[string]StudentID),
		courseByID:   make(map[string]CourseID),
		sectionByKey: make(map[SectionKey]SectionID),
		slotSections: make(map[MeetingSlot][]SectionID),
	}

	internStudent := func(name string) StudentID {
		if id, ok := ix.studentByID[name]; ok {
			return id
		}
		id := StudentID(len(ix.studentNames))
		ix.studentNames = append(ix.studentNames, name)
		ix.studentByID[name] = id
		ix.studentRequests = append(ix.studentRequests, nil)
		return id
	}
	internCourse := func(name string) CourseID {
		if id, ok := ix.courseByID[name]; ok {
			return id
		}
		id := CourseID(len(ix.courseNames))
		ix.courseNames = append(ix.courseNames, name)
		ix.courseByID[name] = id
		ix.courseSections = append(ix.courseSections, nil)
		return id
	}
	internSection := func(key SectionKey, capacity int) SectionID {
		if id, ok := ix.sectionByKey[key]; ok {
			return id
		}
		courseID := internCourse(key.Course)
		id := SectionID(len(ix.sections))
		ix.sections = append(ix.sections, key)
		ix.sectionByKey[key] = id
		ix.sectionCourse = append(ix.sectionCourse, courseID)
		ix.sectionCap = append(ix.sectionCap, capacity)
		ix.sectionTimes = append(ix.sectionTimes, nil)
		ix.courseSections[courseID] = append(ix.courseSections[courseID], id)
		return id
	}

	for _, row := range schedules {
		internSection(SectionKey{Course: row.CourseName, Section: row.Section}, row.Capacity)
	}

	dayPeriodSeen := make(map[MeetingSlot]bool)
	daySeen := make(map[string]bool)
	periodSeen := make(map[int]bool)
	for _, row := range periods {
		key := SectionKey{Course: row.CourseName, Section: row.Section}
		secID, ok := ix.sectionByKey[key]
		if !ok {
			// A meeting slot for a section absent from the schedules
			// table is unvalidated input (spec §1); skip rather than
			// fabricate a section with no declared capacity.
			continue
		}
		slot := MeetingSlot{Day: row.DayOfWeek, Period: row.PeriodNumber}
		if !containsSlot(ix.sectionTimes[secID], slot) {
			ix.sectionTimes[secID] = append(ix.sectionTimes[secID], slot)
		}
		ix.slotSections[slot] = appendUniqueSection(ix.slotSections[slot], secID)

		if !dayPeriodSeen[slot] {
			dayPeriodSeen[slot] = true
			ix.dayPeriods = append(ix.dayPeriods, slot)
		}
		if !daySeen[row.DayOfWeek] {
			daySeen[row.DayOfWeek] = true
			ix.observedDays = append(ix.observedDays, row.DayOfWeek)
		}
		if !periodSeen[row.PeriodNumber] {
			periodSeen[row.PeriodNumber] = true
			ix.observedPeriods = append(ix.observedPeriods, row.PeriodNumber)
		}
	}
	sort.Ints(ix.observedPeriods)

	for _, row := range students {
		sID := internStudent(row.StudentName)
		cID := internCourse(row.CourseName)
		if !containsCourse(ix.studentRequests[sID], cID) {
			ix.studentRequests[sID] = append(ix.studentRequests[sID], cID)
		}
	}

	return ix
}

func containsSlot(slots []MeetingSlot, slot MeetingSlot) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func containsCourse(courses []CourseID, c CourseID) bool {
	for _, existing := range courses {
		if existing == c {
			return true
		}
	}
	return false
}

func appendUniqueSection(sections []SectionID, id SectionID) []SectionID {
	for _, existing := range sections {
		if existing == id {
			return sections
		}
	}
	return append(sections, id)
}

func (ix *indices) studentName(id StudentID) string { return ix.studentNames[id] }
func (ix *indices) courseName(id CourseID) string    { return ix.courseNames[id] }
func (ix *indices) sectionKey(id SectionID) SectionKey { return ix.sections[id] }

func (ix *indices) studentCount() int { return len(ix.studentNames) }
func (ix *indices) sectionCount() int { return len(ix.sections) }
