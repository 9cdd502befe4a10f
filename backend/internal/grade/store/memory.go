package store

import (
	"context"
	"sort"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
)

// MemoryStore keeps gradebooks in process. Used for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	students []grade.Student
	subjects []grade.Subject
	scores   grade.Scores
	upserts  []grade.ScoreWrite
	failNext map[grade.CellKey]error
	failAll  error
}

// NewMemoryStore creates a store with the given roster and subjects. Every
// student is enrolled in every subject.
func NewMemoryStore(students []grade.Student, subjects []grade.Subject) *MemoryStore {
	return &MemoryStore{
		students: append([]grade.Student(nil), students...),
		subjects: append([]grade.Subject(nil), subjects...),
		scores:   grade.Scores{},
		failNext: make(map[grade.CellKey]error),
	}
}

// Subjects implements Store.
func (m *MemoryStore) Subjects(ctx context.Context) ([]grade.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]grade.Subject(nil), m.subjects...), nil
}

// Roster implements Store. Unknown subjects yield an empty roster.
func (m *MemoryStore) Roster(ctx context.Context, subjectID string) ([]WideRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasSubject(subjectID) {
		return []WideRecord{}, nil
	}
	records := make([]WideRecord, 0, len(m.students))
	for _, st := range m.students {
		rec := WideRecord{StudentID: st.ID, StudentName: st.Name}
		for slot := 1; slot <= grade.MaxSlot; slot++ {
			rec.SetSlot(slot, m.scores.Score(grade.CellKey{StudentID: st.ID, SubjectID: subjectID, Slot: slot}))
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].StudentName < records[j].StudentName })
	return records, nil
}

// UpsertScore implements Store.
func (m *MemoryStore) UpsertScore(ctx context.Context, w grade.ScoreWrite) error {
	if err := checkWrite(w); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts = append(m.upserts, w)
	if m.failAll != nil {
		return m.failAll
	}
	if err, ok := m.failNext[w.Key()]; ok {
		delete(m.failNext, w.Key())
		return err
	}
	if !m.hasStudent(w.StudentID) {
		return status.Errorf(codes.NotFound, "student not found: %s", w.StudentID)
	}
	if !m.hasSubject(w.SubjectID) {
		return status.Errorf(codes.NotFound, "subject not found: %s", w.SubjectID)
	}
	m.scores.Set(w.Key(), w.Value)
	return nil
}

// Seed stores a score without recording an upsert.
func (m *MemoryStore) Seed(key grade.CellKey, v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[key] = v
}

// Score returns the persisted value of a cell.
func (m *MemoryStore) Score(key grade.CellKey) grade.Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores.Score(key)
}

// Upserts returns every write attempted so far, failed ones included.
func (m *MemoryStore) Upserts() []grade.ScoreWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]grade.ScoreWrite(nil), m.upserts...)
}

// FailNext makes the next write to key fail with err.
func (m *MemoryStore) FailNext(key grade.CellKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[key] = err
}

// FailAll makes every write fail with err until called with nil.
func (m *MemoryStore) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

func (m *MemoryStore) hasStudent(id string) bool {
	for _, st := range m.students {
		if st.ID == id {
			return true
		}
	}
	return false
}

func (m *MemoryStore) hasSubject(id string) bool {
	for _, s := range m.subjects {
		if s.ID == id {
			return true
		}
	}
	return false
}
