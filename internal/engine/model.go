package engine

import (
	"math"

	"github.com/nextmv-io/sdk/mip"
	"github.com/nextmv-io/sdk/model"
)

// varKey identifies one decision variable x[s,c,k]: whether student s is
// assigned to a section of one of their requested courses.
type varKey struct {
	Student StudentID
	Section SectionID
}

// builtModel bundles the mip.Model together with the variable maps the
// Solver Driver and Solution Reader need to address afterwards.
type builtModel struct {
	m mip.Model

	x     model.MultiMap[mip.Bool, varKey]
	xKeys []varKey

	size       model.MultiMap[mip.Float, SectionID]
	dev        model.MultiMap[mip.Float, SectionID]
	unassigned model.MultiMap[mip.Float, StudentID]
	uMin       mip.Float
	uMax       mip.Float

	// studentSections: the sections a student has a decision variable
	// for (the union of course_sections over their requested courses).
	studentSections map[StudentID][]SectionID
	// sectionStudents: the students eligible for a given section.
	sectionStudents map[SectionID][]StudentID
}

// buildModel constructs the MILP: decision variables, auxiliary
// variables, all eight constraints, and the weighted objective described
// in spec.md §4.2.
func buildModel(ix *indices, opts Options) *builtModel {
	m := mip.NewModel()
	m.Objective().SetMaximize()

	built := &builtModel{
		m:               m,
		studentSections: make(map[StudentID][]SectionID),
		sectionStudents: make(map[SectionID][]StudentID),
	}

	// Decision variables: only for (student, section) pairs where the
	// section's course was actually requested — equivalent to spec's
	// "create for every pair, then pin unrequested ones to zero" (see
	// DESIGN.md Open Question 2), at a fraction of the variable count.
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		for _, c := range ix.studentRequests[sid] {
			for _, sec := range ix.courseSections[c] {
				built.xKeys = append(built.xKeys, varKey{Student: sid, Section: sec})
				built.studentSections[sid] = append(built.studentSections[sid], sec)
				built.sectionStudents[sec] = append(built.sectionStudents[sec], sid)
			}
		}
	}
	built.x = model.NewMultiMap(func(...varKey) mip.Bool {
		return m.NewBool()
	}, built.xKeys)

	sectionIDs := make([]SectionID, ix.sectionCount())
	for k := range sectionIDs {
		sectionIDs[k] = SectionID(k)
	}
	built.size = model.NewMultiMap(func(keys ...SectionID) mip.Float {
		return m.NewFloat(0, float64(ix.sectionCap[keys[0]]))
	}, sectionIDs)
	built.dev = model.NewMultiMap(func(...SectionID) mip.Float {
		return m.NewFloat(0, math.MaxFloat64)
	}, sectionIDs)

	studentIDs := make([]StudentID, ix.studentCount())
	maxRequests := 0
	for s := range studentIDs {
		studentIDs[s] = StudentID(s)
		if n := len(ix.studentRequests[s]); n > maxRequests {
			maxRequests = n
		}
	}
	built.unassigned = model.NewMultiMap(func(keys ...StudentID) mip.Float {
		return m.NewFloat(0, float64(len(ix.studentRequests[keys[0]])))
	}, studentIDs)
	built.uMin = m.NewFloat(0, float64(maxRequests))
	built.uMax = m.NewFloat(0, float64(maxRequests))

	addOneSectionPerCourse(m, ix, built)
	addCapacity(m, ix, built)
	addNoTimeConflicts(m, ix, built)
	addSectionSizeLinkage(m, ix, built)
	addDeviationLinearization(m, ix, built)
	addUnassignedCounter(m, ix, built)
	addFairnessBounds(m, ix, built)
	addObjective(m, ix, built, opts)

	return built
}

// addOneSectionPerCourse: for every (student, requested course), at most
// one of its sections may be chosen.
func addOneSectionPerCourse(m mip.Model, ix *indices, b *builtModel) {
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		for _, c := range ix.studentRequests[sid] {
			sections := ix.courseSections[c]
			if len(sections) == 0 {
				continue // course has no sections — Constraint.Skip equivalent
			}
			con := m.NewConstraint(mip.LessThanOrEqual, 1.0)
			for _, sec := range sections {
				con.NewTerm(1.0, b.x.Get(varKey{Student: sid, Section: sec}))
			}
		}
	}
}

// addCapacity: the number of students assigned to a section cannot
// exceed its capacity.
func addCapacity(m mip.Model, ix *indices, b *builtModel) {
	for k := 0; k < ix.sectionCount(); k++ {
		sec := SectionID(k)
		students := b.sectionStudents[sec]
		if len(students) == 0 {
			continue
		}
		con := m.NewConstraint(mip.LessThanOrEqual, float64(ix.sectionCap[sec]))
		for _, sid := range students {
			con.NewTerm(1.0, b.x.Get(varKey{Student: sid, Section: sec}))
		}
	}
}

// addNoTimeConflicts: for every student and every observed (day, period)
// at which more than one of their eligible sections meets, at most one of
// those sections may be chosen.
func addNoTimeConflicts(m mip.Model, ix *indices, b *builtModel) {
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		bySlot := make(map[MeetingSlot][]SectionID)
		for _, sec := range b.studentSections[sid] {
			for _, slot := range ix.sectionTimes[sec] {
				bySlot[slot] = append(bySlot[slot], sec)
			}
		}
		for _, sections := range bySlot {
			if len(sections) < 2 {
				continue
			}
			con := m.NewConstraint(mip.LessThanOrEqual, 1.0)
			for _, sec := range sections {
				con.NewTerm(1.0, b.x.Get(varKey{Student: sid, Section: sec}))
			}
		}
	}
}

// addSectionSizeLinkage: size[c,k] == sum_s x[s,c,k].
func addSectionSizeLinkage(m mip.Model, ix *indices, b *builtModel) {
	for k := 0; k < ix.sectionCount(); k++ {
		sec := SectionID(k)
		con := m.NewConstraint(mip.Equal, 0.0)
		con.NewTerm(1.0, b.size.Get(sec))
		for _, sid := range b.sectionStudents[sec] {
			con.NewTerm(-1.0, b.x.Get(varKey{Student: sid, Section: sec}))
		}
	}
}

// addDeviationLinearization: for each course with sections K and mean
// size μ, dev[k] >= size[k] - μ and dev[k] >= μ - size[k]. Multiplying
// through by |K| avoids a fractional mean: |K|·dev[k] - |K|·size[k] +
// Σ size[k'] >= 0, and the mirror image.
func addDeviationLinearization(m mip.Model, ix *indices, b *builtModel) {
	for c := 0; c < len(ix.courseSections); c++ {
		sections := ix.courseSections[c]
		n := float64(len(sections))
		if n == 0 {
			continue
		}
		for _, target := range sections {
			coeffs := make(map[SectionID]float64, len(sections))
			coeffs[target] -= n
			for _, other := range sections {
				coeffs[other] += 1.0
			}
			lower := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
			lower.NewTerm(n, b.dev.Get(target))
			for sec, coeff := range coeffs {
				lower.NewTerm(coeff, b.size.Get(sec))
			}

			upper := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
			upper.NewTerm(n, b.dev.Get(target))
			for sec, coeff := range coeffs {
				upper.NewTerm(-coeff, b.size.Get(sec))
			}
		}
	}
}

// addUnassignedCounter: unassigned[s] == |requests(s)| - Σ x[s,c,k].
func addUnassignedCounter(m mip.Model, ix *indices, b *builtModel) {
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		requested := ix.studentRequests[sid]
		con := m.NewConstraint(mip.Equal, float64(len(requested)))
		con.NewTerm(1.0, b.unassigned.Get(sid))
		for _, c := range requested {
			for _, sec := range ix.courseSections[c] {
				con.NewTerm(1.0, b.x.Get(varKey{Student: sid, Section: sec}))
			}
		}
	}
}

// addFairnessBounds: u_min <= unassigned[s] <= u_max for every student.
func addFairnessBounds(m mip.Model, ix *indices, b *builtModel) {
	for s := 0; s < ix.studentCount(); s++ {
		sid := StudentID(s)
		lower := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		lower.NewTerm(1.0, b.unassigned.Get(sid))
		lower.NewTerm(-1.0, b.uMin)

		upper := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		upper.NewTerm(1.0, b.uMax)
		upper.NewTerm(-1.0, b.unassigned.Get(sid))
	}
}

// addObjective: maximize Σx - α·Σdev - β·(u_max - u_min).
func addObjective(m mip.Model, ix *indices, b *builtModel, opts Options) {
	obj := m.Objective()
	for _, key := range b.xKeys {
		obj.NewTerm(1.0, b.x.Get(key))
	}
	for k := 0; k < ix.sectionCount(); k++ {
		obj.NewTerm(-opts.BalanceWeight, b.dev.Get(SectionID(k)))
	}
	obj.NewTerm(-opts.FairnessWeight, b.uMax)
	obj.NewTerm(opts.FairnessWeight, b.uMin)
}
