package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/store"
)

func newStore() *store.MemoryStore {
	mem := store.NewMemoryStore(
		[]grade.Student{{ID: "s1", Name: "Ana"}, {ID: "s2", Name: "Bruno"}},
		[]grade.Subject{
			{ID: "mat", Name: "Matemática"},
			{ID: "por", Name: "Língua Portuguesa"},
			{ID: "ef", Name: "Educação Física", Concept: true},
		},
	)
	seed := func(subject string, slot, v int) {
		mem.Seed(grade.CellKey{StudentID: "s1", SubjectID: subject, Slot: slot}, v)
	}
	seed("mat", 1, 50)
	seed("mat", 11, 61)
	seed("por", 1, 45)
	seed("por", 11, 60)
	seed("ef", 1, 70)
	return mem
}

// brokenRoster fails roster reads for one subject.
type brokenRoster struct {
	*store.MemoryStore
	subjectID string
	err       error
}

func (b brokenRoster) Roster(ctx context.Context, subjectID string) ([]store.WideRecord, error) {
	if subjectID == b.subjectID {
		return nil, b.err
	}
	return b.MemoryStore.Roster(ctx, subjectID)
}

func TestBuild(t *testing.T) {
	rep, err := Build(context.Background(), newStore(), "s1")
	require.NoError(t, err)

	assert.Equal(t, "Ana", rep.Name)
	require.Len(t, rep.Subjects, 3)
	assert.Equal(t, Line{SubjectID: "mat", Subject: "Matemática", FirstSemester: "50", SecondSemester: "61", Final: "56"}, rep.Subjects[0])
	assert.Equal(t, Line{SubjectID: "ef", Subject: "Educação Física", FirstSemester: "MB", SecondSemester: "-", Final: "MB"}, rep.Subjects[2])

	// (50+45+70)/3 = 55; (61+60)/2 = 60.5 floors to 60; (55+60)/2 = 57.5 rounds to 58.
	assert.Equal(t, "55", rep.FirstSemester)
	assert.Equal(t, "60", rep.SecondSemester)
	assert.Equal(t, "58", rep.Final)
}

func TestBuildUngradedStudent(t *testing.T) {
	rep, err := Build(context.Background(), newStore(), "s2")
	require.NoError(t, err)
	assert.Len(t, rep.Subjects, 3)
	assert.Equal(t, "-", rep.FirstSemester)
	assert.Equal(t, "-", rep.Final)
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown student", func(t *testing.T) {
		_, err := Build(context.Background(), newStore(), "ghost")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Build(context.Background(), newStore(), "")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("roster failure", func(t *testing.T) {
		boom := errors.New("store down")
		_, err := Build(context.Background(), brokenRoster{newStore(), "por", boom}, "s1")
		assert.ErrorIs(t, err, boom)
	})
}
