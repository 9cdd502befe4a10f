package grade

import (
	"math"
	"strconv"

	"github.com/montanaflynn/stats"
)

// Average is a derived score. Concept marks averages of concept subjects so the
// label is applied only when rendering; Value stays numeric for aggregation.
type Average struct {
	Value   int  `json:"value"`
	Valid   bool `json:"valid"`
	Concept bool `json:"concept,omitempty"`
}

// NoAverage is returned when there is nothing to average.
var NoAverage = Average{}

// Display renders "-" for a missing average.
func (a Average) Display() string {
	if !a.Valid {
		return "-"
	}
	if a.Concept {
		return ConceptLabel(a.Value)
	}
	return strconv.Itoa(a.Value)
}

// RoundHalfUp rounds a non-negative mean: a fractional part of .5 or more goes up.
func RoundHalfUp(x float64) int {
	f := math.Floor(x)
	if x-f >= 0.5 {
		return int(math.Ceil(x))
	}
	return int(f)
}

// Floor truncates a non-negative mean.
func Floor(x float64) int {
	return int(math.Floor(x))
}

func mean(values []float64) (float64, bool) {
	m, err := stats.Mean(stats.Float64Data(values))
	if err != nil {
		return 0, false
	}
	return m, true
}

// SemesterAverage averages the non-null scores of one student in one subject
// and semester, rounding half up.
func SemesterAverage(src ScoreSource, studentID string, subj Subject, sem Semester) Average {
	var values []float64
	for _, slot := range subj.SemesterSlots(sem) {
		s := src.Score(CellKey{StudentID: studentID, SubjectID: subj.ID, Slot: slot})
		if s.Valid {
			values = append(values, float64(s.Value))
		}
	}
	m, ok := mean(values)
	if !ok {
		return NoAverage
	}
	return Average{Value: RoundHalfUp(m), Valid: true, Concept: subj.Concept}
}

// FinalAverage combines both semester averages. When only one semester has an
// average it is returned unchanged.
func FinalAverage(src ScoreSource, studentID string, subj Subject) Average {
	first := SemesterAverage(src, studentID, subj, FirstSemester)
	second := SemesterAverage(src, studentID, subj, SecondSemester)
	return combine(first, second, subj.Concept, RoundHalfUp)
}

// ClassAverage is the mean of every student's semester average in one subject,
// shown under the matrix column. It floors like GeneralAverage.
func ClassAverage(src ScoreSource, students []Student, subj Subject, sem Semester) Average {
	var values []float64
	for _, st := range students {
		if avg := SemesterAverage(src, st.ID, subj, sem); avg.Valid {
			values = append(values, float64(avg.Value))
		}
	}
	m, ok := mean(values)
	if !ok {
		return NoAverage
	}
	return Average{Value: Floor(m), Valid: true, Concept: subj.Concept}
}

// FinalClassAverage combines the two class averages, rounding half up.
func FinalClassAverage(src ScoreSource, students []Student, subj Subject) Average {
	first := ClassAverage(src, students, subj, FirstSemester)
	second := ClassAverage(src, students, subj, SecondSemester)
	return combine(first, second, subj.Concept, RoundHalfUp)
}

// GeneralAverage is the mean of a student's semester averages across subjects.
// It floors instead of rounding half up; reported figures depend on it.
// Concept subjects count with their numeric value.
func GeneralAverage(src ScoreSource, studentID string, subjects []Subject, sem Semester) Average {
	var values []float64
	for _, subj := range subjects {
		if avg := SemesterAverage(src, studentID, subj, sem); avg.Valid {
			values = append(values, float64(avg.Value))
		}
	}
	m, ok := mean(values)
	if !ok {
		return NoAverage
	}
	return Average{Value: Floor(m), Valid: true}
}

// FinalGeneralAverage combines the two general averages, rounding half up.
func FinalGeneralAverage(src ScoreSource, studentID string, subjects []Subject) Average {
	first := GeneralAverage(src, studentID, subjects, FirstSemester)
	second := GeneralAverage(src, studentID, subjects, SecondSemester)
	return combine(first, second, false, RoundHalfUp)
}

func combine(a, b Average, concept bool, round func(float64) int) Average {
	switch {
	case a.Valid && b.Valid:
		m, _ := mean([]float64{float64(a.Value), float64(b.Value)})
		return Average{Value: round(m), Valid: true, Concept: concept}
	case a.Valid:
		return a
	case b.Valid:
		return b
	default:
		return NoAverage
	}
}
