// Package store adapts the external gradebook persistence to the grade model.
// The roster read API returns one wide record per student with every slot as
// its own field; that shape does not leave this package.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
)

// Store is the score persistence collaborator.
type Store interface {
	// Subjects lists every subject with its concept flag.
	Subjects(ctx context.Context) ([]grade.Subject, error)
	// Roster returns the students of a subject with all of their slot values.
	Roster(ctx context.Context, subjectID string) ([]WideRecord, error)
	// UpsertScore writes a single cell. A null value clears it.
	UpsertScore(ctx context.Context, w grade.ScoreWrite) error
}

// WideRecord is a student row as served by the roster read API.
type WideRecord struct {
	StudentID   string
	StudentName string
	Slots       [grade.MaxSlot]grade.Score
}

// SlotField names the wide-record field of a slot position (n1..n20).
func SlotField(slot int) string {
	return "n" + strconv.Itoa(slot)
}

// Slot returns the value at position slot (1-based).
func (r WideRecord) Slot(slot int) grade.Score {
	if slot < 1 || slot > grade.MaxSlot {
		return grade.Null()
	}
	return r.Slots[slot-1]
}

// SetSlot stores v at position slot (1-based). Out of range positions are ignored.
func (r *WideRecord) SetSlot(slot int, v grade.Score) {
	if slot < 1 || slot > grade.MaxSlot {
		return
	}
	r.Slots[slot-1] = v
}

func (r WideRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, grade.MaxSlot+2)
	m["id"] = r.StudentID
	m["name"] = r.StudentName
	for i, s := range r.Slots {
		m[SlotField(i+1)] = s.Ptr()
	}
	return json.Marshal(m)
}

func (r *WideRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode roster record: %w", err)
	}
	*r = WideRecord{}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &r.StudentID); err != nil {
			return fmt.Errorf("decode roster record id: %w", err)
		}
	}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &r.StudentName); err != nil {
			return fmt.Errorf("decode roster record name: %w", err)
		}
	}
	for slot := 1; slot <= grade.MaxSlot; slot++ {
		v, ok := raw[SlotField(slot)]
		if !ok {
			continue
		}
		var s grade.Score
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decode roster record %s: %w", SlotField(slot), err)
		}
		r.Slots[slot-1] = s
	}
	return nil
}

// ToMatrix converts wide records of one subject into the roster and the sparse
// score map used by the matrix. Order of the roster follows the records.
func ToMatrix(records []WideRecord, subjectID string) ([]grade.Student, grade.Scores) {
	students := make([]grade.Student, 0, len(records))
	scores := grade.Scores{}
	for _, rec := range records {
		students = append(students, grade.Student{ID: rec.StudentID, Name: rec.StudentName})
		for i, s := range rec.Slots {
			key := grade.CellKey{StudentID: rec.StudentID, SubjectID: subjectID, Slot: i + 1}
			scores.Set(key, s)
		}
	}
	return students, scores
}

// checkWrite validates a write the way every adapter must before persisting it.
func checkWrite(w grade.ScoreWrite) error {
	if w.StudentID == "" || w.SubjectID == "" {
		return status.Error(codes.InvalidArgument, "student_id and subject_id are required")
	}
	if err := w.Validate(); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}
