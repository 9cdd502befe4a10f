package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/matrix"
	"schooldash/backend/internal/grade/navigation"
	"schooldash/backend/internal/grade/store"
)

func newStore() *store.MemoryStore {
	mem := store.NewMemoryStore(
		[]grade.Student{{ID: "s1", Name: "Ana"}, {ID: "s2", Name: "Bruno"}},
		[]grade.Subject{{ID: "ef", Name: "Educação Física"}},
	)
	mem.Seed(grade.CellKey{StudentID: "s1", SubjectID: "ef", Slot: 1}, 50)
	mem.Seed(grade.CellKey{StudentID: "s1", SubjectID: "ef", Slot: 11}, 60)
	return mem
}

func TestOpen(t *testing.T) {
	m := NewManager(newStore(), Options{})

	v, err := m.Open(context.Background(), "ef", grade.FirstSemester)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, 1, m.Len())

	snap := v.Snapshot()
	assert.Equal(t, v.ID, snap.ViewID)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, "50", snap.Rows[0].Cells[0].Text)
	assert.Equal(t, "55", snap.Rows[0].FinalAverage)
	assert.Equal(t, navigation.Address{}, snap.Focus)
	assert.Empty(t, snap.Alerts)

	got, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Same(t, v, got)
}

func TestOpenUnknownSubject(t *testing.T) {
	m := NewManager(newStore(), Options{})

	v, err := m.Open(context.Background(), "nope", grade.SecondSemester)
	require.NoError(t, err)

	snap := v.Snapshot()
	assert.Empty(t, snap.Rows)
	assert.Equal(t, "-", snap.ClassAverage)
	assert.False(t, v.Press(navigation.KeyDown).Moved)
}

func TestOpenInvalidSemester(t *testing.T) {
	m := NewManager(newStore(), Options{})
	_, err := m.Open(context.Background(), "ef", 0)
	assert.ErrorIs(t, err, grade.ErrInvalidSemester)
}

type failingStore struct{ store.Store }

func (failingStore) Subjects(ctx context.Context) ([]grade.Subject, error) {
	return nil, errors.New("unreachable")
}

func TestOpenStoreFailure(t *testing.T) {
	m := NewManager(failingStore{newStore()}, Options{})
	_, err := m.Open(context.Background(), "ef", grade.FirstSemester)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestSlotsPerSemesterDefault(t *testing.T) {
	m := NewManager(newStore(), Options{SlotsPerSemester: 4})
	v, err := m.Open(context.Background(), "ef", grade.FirstSemester)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, v.Controller().Columns())
}

func TestViewEditingAndAlerts(t *testing.T) {
	mem := newStore()
	m := NewManager(mem, Options{})
	ctx := context.Background()

	v, err := m.Open(ctx, "ef", grade.FirstSemester)
	require.NoError(t, err)
	c := v.Controller()

	require.NoError(t, c.Input("s2", 1, "5"))
	assert.Error(t, c.Commit(ctx, "s2", 1))
	require.NoError(t, c.Input("s2", 1, "45"))
	require.NoError(t, c.Commit(ctx, "s2", 1))
	require.NoError(t, m.WaitAll(ctx))

	snap := v.Snapshot()
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, matrix.AlertValidation, snap.Alerts[0].Kind)
	assert.Equal(t, matrix.StatusSaved, snap.Rows[1].Cells[0].Status)
	assert.Equal(t, grade.Of(45), mem.Score(grade.CellKey{StudentID: "s2", SubjectID: "ef", Slot: 1}))
	assert.Empty(t, v.Snapshot().Alerts)
}

func TestViewSemesterAndFocus(t *testing.T) {
	m := NewManager(newStore(), Options{})
	v, err := m.Open(context.Background(), "ef", grade.FirstSemester)
	require.NoError(t, err)

	require.NoError(t, v.Focus().MoveTo(navigation.Address{Row: 0, Col: 9}))
	res := v.Press(navigation.KeyRight)
	assert.Equal(t, navigation.Address{Row: 1, Col: 0}, res.At)

	student, slot, ok := v.CellAt(res.At)
	require.True(t, ok)
	assert.Equal(t, "s2", student)
	assert.Equal(t, 1, slot)

	require.NoError(t, v.SetSemester(grade.SecondSemester))
	_, slot, _ = v.CellAt(res.At)
	assert.Equal(t, 11, slot)
	assert.Equal(t, "60", v.Snapshot().Rows[0].Cells[0].Text)
}

func TestViewExport(t *testing.T) {
	m := NewManager(newStore(), Options{})
	v, err := m.Open(context.Background(), "ef", grade.SecondSemester)
	require.NoError(t, err)
	assert.Equal(t, "notas_educacao_fisica.xlsx", v.FileName())

	var buf bytes.Buffer
	require.NoError(t, v.Export(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Notas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "50", rows[1][1])
	assert.Equal(t, "60", rows[1][11])
}

func TestCloseAndSweep(t *testing.T) {
	m := NewManager(newStore(), Options{ViewTTL: time.Minute})
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	a, err := m.Open(ctx, "ef", grade.FirstSemester)
	require.NoError(t, err)
	b, err := m.Open(ctx, "ef", grade.FirstSemester)
	require.NoError(t, err)

	require.NoError(t, m.Close(a.ID))
	assert.ErrorIs(t, m.Close(a.ID), ErrViewNotFound)
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 0, m.Sweep())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	_, err = m.Get(b.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)

	require.NoError(t, m.WaitAll(ctx))
}
