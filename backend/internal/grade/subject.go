package grade

import "fmt"

// MaxSlot is the number of assessment positions a gradebook row stores.
const MaxSlot = 20

// semesterWidth is the fixed distance between the first slot of each semester.
// Stored positions do not shift when a subject uses fewer slots.
const semesterWidth = MaxSlot / 2

// DefaultSlotsPerSemester matches the editing grid.
const DefaultSlotsPerSemester = 10

// Semester is 1 or 2.
type Semester int

const (
	FirstSemester  Semester = 1
	SecondSemester Semester = 2
)

// Semesters lists both semesters in order.
var Semesters = []Semester{FirstSemester, SecondSemester}

func (s Semester) Validate() error {
	if s != FirstSemester && s != SecondSemester {
		return ErrInvalidSemester
	}
	return nil
}

// Student is a roster entry. Owned by the roster service.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject describes one gradebook column group.
//
// SlotsPerSemester applies to both semesters unless SecondSemesterSlots is set.
// Either count is capped at 10: each semester owns a fixed half of the stored
// row (n1..n10 and n11..n20), so a 12/11 layout cannot be stored.
type Subject struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Concept             bool   `json:"concept"`
	SlotsPerSemester    int    `json:"slots_per_semester,omitempty"`
	SecondSemesterSlots int    `json:"second_semester_slots,omitempty"`
}

// Slots returns the number of assessment slots in sem.
func (s Subject) Slots(sem Semester) int {
	if sem == SecondSemester && s.SecondSemesterSlots > 0 {
		return s.SecondSemesterSlots
	}
	if s.SlotsPerSemester <= 0 {
		return DefaultSlotsPerSemester
	}
	return s.SlotsPerSemester
}

// Validate rejects slot counts that do not fit in a semester's half of the row.
func (s Subject) Validate() error {
	for _, n := range []int{s.SlotsPerSemester, s.SecondSemesterSlots} {
		if n < 0 || n > semesterWidth {
			return fmt.Errorf("subject %s: slots per semester must be between 1 and %d", s.ID, semesterWidth)
		}
	}
	return nil
}

// SemesterSlots returns the slot positions that belong to sem, in column order.
func (s Subject) SemesterSlots(sem Semester) []int {
	if sem.Validate() != nil {
		return nil
	}
	n := s.Slots(sem)
	if n > semesterWidth {
		n = semesterWidth
	}
	base := (int(sem) - 1) * semesterWidth
	slots := make([]int, n)
	for i := range slots {
		slots[i] = base + i + 1
	}
	return slots
}

// SemesterOf reports which semester a slot position belongs to for this subject.
func (s Subject) SemesterOf(slot int) (Semester, bool) {
	for _, sem := range Semesters {
		for _, p := range s.SemesterSlots(sem) {
			if p == slot {
				return sem, true
			}
		}
	}
	return 0, false
}
