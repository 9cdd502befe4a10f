package grade

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConceptLabel(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{70, "MB"},
		{55, "B"},
		{50, "B"},
		{49, "S"},
		{42, "S"},
		{40, "S"},
		{39, "I"},
		{35, "I"},
		{20, "I"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConceptLabel(tt.in), "ConceptLabel(%d)", tt.in)
	}
}

func TestParseScore(t *testing.T) {
	for v := MinScore; v <= MaxScore; v++ {
		s, err := ParseScore(" " + Of(v).String())
		require.NoError(t, err)
		require.Equal(t, Of(v), s)
	}

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"below range", "9", ErrOutOfRange},
		{"above range", "71", ErrOutOfRange},
		{"negative", "-10", ErrOutOfRange},
		{"decimal", "45.5", ErrNotANumber},
		{"letters", "MB", ErrNotANumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScore(tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	s, err := ParseScore("   ")
	require.NoError(t, err)
	assert.False(t, s.Valid)
}

func TestScoreJSON(t *testing.T) {
	var w ScoreWrite
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":"a","subject_id":"m","slot":3,"value":null}`), &w))
	assert.Equal(t, Null(), w.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"student_id":"a","subject_id":"m","slot":3,"value":42}`), &w))
	assert.Equal(t, Of(42), w.Value)

	out, err := json.Marshal(Null())
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestScoreWriteValidate(t *testing.T) {
	assert.NoError(t, ScoreWrite{Slot: 1, Value: Of(10)}.Validate())
	assert.NoError(t, ScoreWrite{Slot: 20, Value: Null()}.Validate())
	assert.ErrorIs(t, ScoreWrite{Slot: 0, Value: Of(10)}.Validate(), ErrInvalidSlot)
	assert.ErrorIs(t, ScoreWrite{Slot: 21, Value: Of(10)}.Validate(), ErrInvalidSlot)
	assert.ErrorIs(t, ScoreWrite{Slot: 5, Value: Of(71)}.Validate(), ErrOutOfRange)
}

func TestSubjectLayout(t *testing.T) {
	subj := Subject{ID: "mat"}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, subj.SemesterSlots(FirstSemester))
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, subj.SemesterSlots(SecondSemester))
	assert.Nil(t, subj.SemesterSlots(Semester(3)))

	short := Subject{ID: "art", SlotsPerSemester: 4}
	assert.Equal(t, []int{11, 12, 13, 14}, short.SemesterSlots(SecondSemester))

	sem, ok := short.SemesterOf(12)
	assert.True(t, ok)
	assert.Equal(t, SecondSemester, sem)
	_, ok = short.SemesterOf(5)
	assert.False(t, ok)

	assert.Error(t, Subject{ID: "x", SlotsPerSemester: 12}.Validate())
	assert.NoError(t, short.Validate())
}

func TestSubjectSemesterSlotCounts(t *testing.T) {
	uneven := Subject{ID: "his", SlotsPerSemester: 10, SecondSemesterSlots: 9}
	assert.Equal(t, 10, uneven.Slots(FirstSemester))
	assert.Equal(t, 9, uneven.Slots(SecondSemester))
	assert.Len(t, uneven.SemesterSlots(FirstSemester), 10)
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19}, uneven.SemesterSlots(SecondSemester))
	assert.NoError(t, uneven.Validate())

	_, ok := uneven.SemesterOf(20)
	assert.False(t, ok)

	// The report layout of 12 and 11 does not fit the stored row.
	assert.Error(t, Subject{ID: "his", SlotsPerSemester: 12, SecondSemesterSlots: 11}.Validate())
	assert.Error(t, Subject{ID: "his", SlotsPerSemester: 10, SecondSemesterSlots: 11}.Validate())

	// Only the second semester can be overridden.
	assert.Equal(t, DefaultSlotsPerSemester, Subject{SecondSemesterSlots: 4}.Slots(FirstSemester))
}
