package matrix

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/store"
)

var (
	algebra  = grade.Subject{ID: "mat", Name: "Matemática"}
	arts     = grade.Subject{ID: "art", Name: "Artes", Concept: true}
	students = []grade.Student{{ID: "s1", Name: "Ana"}, {ID: "s2", Name: "Bruno"}}
)

func key(student string, slot int) grade.CellKey {
	return grade.CellKey{StudentID: student, SubjectID: algebra.ID, Slot: slot}
}

func newController(t *testing.T, subj grade.Subject, persisted grade.Scores) (*Controller, *store.MemoryStore, *Alerts) {
	t.Helper()
	mem := store.NewMemoryStore(students, []grade.Subject{algebra, arts})
	alerts := &Alerts{}
	c, err := NewController(Config{
		Subject:  subj,
		Students: students,
		Scores:   persisted,
		Semester: grade.FirstSemester,
		Saver:    NewSaveEngine(mem, alerts),
		Notify:   alerts,
	})
	require.NoError(t, err)
	return c, mem, alerts
}

func TestSaveEngineDedupe(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(students, []grade.Subject{algebra})
	e := NewSaveEngine(mem, &Alerts{})

	assert.True(t, e.Commit(ctx, key("s1", 1), grade.Of(50)))
	assert.False(t, e.Commit(ctx, key("s1", 1), grade.Of(50)))
	e.Wait()

	assert.Len(t, mem.Upserts(), 1)
	assert.Equal(t, StatusSaved, e.Status(key("s1", 1)))

	// Another cell with the same value is independent.
	assert.True(t, e.Commit(ctx, key("s1", 2), grade.Of(50)))
	// A new value for the same cell goes through.
	assert.True(t, e.Commit(ctx, key("s1", 1), grade.Of(60)))
	e.Wait()
	assert.Len(t, mem.Upserts(), 3)
	assert.Equal(t, grade.Of(60), mem.Score(key("s1", 1)))
}

func TestSaveEngineFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(students, []grade.Subject{algebra})
	alerts := &Alerts{}
	e := NewSaveEngine(mem, alerts)

	mem.FailNext(key("s1", 1), errors.New("connection reset"))
	assert.True(t, e.Commit(ctx, key("s1", 1), grade.Of(50)))
	e.Wait()

	assert.Equal(t, StatusError, e.Status(key("s1", 1)))
	got := alerts.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, AlertSave, got[0].Kind)
	assert.Equal(t, SaveFailedMessage, got[0].Message)

	// Re-entering the same value is a fresh commit.
	assert.True(t, e.Commit(ctx, key("s1", 1), grade.Of(50)))
	e.Wait()
	assert.Equal(t, StatusSaved, e.Status(key("s1", 1)))
	assert.Len(t, mem.Upserts(), 2)
	assert.Empty(t, alerts.Drain())
}

// blockingSaver holds every call until released.
type blockingSaver struct {
	mu      sync.Mutex
	release map[int]chan error
	started chan int
}

func (b *blockingSaver) UpsertScore(ctx context.Context, w grade.ScoreWrite) error {
	b.mu.Lock()
	ch := make(chan error)
	b.release[w.Value.Value] = ch
	b.mu.Unlock()
	b.started <- w.Value.Value
	return <-ch
}

func (b *blockingSaver) finish(value int, err error) {
	b.mu.Lock()
	ch := b.release[value]
	b.mu.Unlock()
	ch <- err
}

func TestSaveEngineIgnoresStaleResponse(t *testing.T) {
	ctx := context.Background()
	saver := &blockingSaver{release: make(map[int]chan error), started: make(chan int, 2)}
	alerts := &Alerts{}
	e := NewSaveEngine(saver, alerts)

	e.Commit(ctx, key("s1", 1), grade.Of(40))
	<-saver.started
	e.Commit(ctx, key("s1", 1), grade.Of(50))
	<-saver.started

	saver.finish(50, nil)
	saver.finish(40, errors.New("timeout"))
	e.Wait()

	assert.Equal(t, StatusSaved, e.Status(key("s1", 1)))
	assert.Empty(t, alerts.Drain())
	// The newer value is still memoised.
	assert.False(t, e.Commit(ctx, key("s1", 1), grade.Of(50)))
}

func TestSaveEngineDetachesFromRequest(t *testing.T) {
	mem := store.NewMemoryStore(students, []grade.Subject{algebra})
	e := NewSaveEngine(mem, nil)

	ctx, cancel := context.WithCancel(context.Background())
	e.Commit(ctx, key("s1", 1), grade.Of(50))
	cancel()
	e.Wait()

	assert.Equal(t, grade.Of(50), mem.Score(key("s1", 1)))
}

func TestControllerDisplay(t *testing.T) {
	persisted := grade.Scores{key("s1", 1): 50}
	c, _, _ := newController(t, algebra, persisted)
	defer c.saver.Wait()

	assert.Equal(t, "50", c.Display("s1", 1))
	assert.Equal(t, "", c.Display("s1", 2))

	require.NoError(t, c.Input("s1", 1, "6"))
	assert.Equal(t, "6", c.Display("s1", 1))
	// Drafts do not count toward averages.
	assert.Equal(t, grade.Of(50), c.Score(key("s1", 1)))

	require.NoError(t, c.Input("s1", 1, "65"))
	require.NoError(t, c.Commit(context.Background(), "s1", 1))
	assert.Equal(t, "65", c.Display("s1", 1))
	assert.Equal(t, grade.Of(65), c.Score(key("s1", 1)))
}

func TestControllerCommitRoundTrip(t *testing.T) {
	c, mem, alerts := newController(t, algebra, nil)
	ctx := context.Background()

	for v := grade.MinScore; v <= grade.MaxScore; v++ {
		text := strconv.Itoa(v)
		require.NoError(t, c.Input("s2", 4, text))
		require.NoError(t, c.Commit(ctx, "s2", 4))
		c.saver.Wait()

		if got := mem.Score(key("s2", 4)); got != grade.Of(v) {
			t.Fatalf("stored %v after committing %d", got, v)
		}
		assert.Equal(t, StatusSaved, c.Status("s2", 4), "value %d", v)
		assert.Equal(t, text, c.Display("s2", 4))
		assert.Equal(t, grade.Of(v), c.Score(key("s2", 4)))
	}
	assert.Len(t, mem.Upserts(), grade.MaxScore-grade.MinScore+1)
	assert.Empty(t, alerts.Drain())
}

func TestControllerRejectsOutOfRange(t *testing.T) {
	for _, text := range []string{"9", "71", "0", "abc", "-10", "45.5"} {
		t.Run(text, func(t *testing.T) {
			c, mem, alerts := newController(t, algebra, nil)

			require.NoError(t, c.Input("s1", 3, text))
			err := c.Commit(context.Background(), "s1", 3)

			var verr *grade.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, text, verr.Text)
			assert.Equal(t, "", c.Display("s1", 3))
			c.saver.Wait()
			assert.Empty(t, mem.Upserts())

			got := alerts.Drain()
			require.Len(t, got, 1)
			assert.Equal(t, AlertValidation, got[0].Kind)
			assert.Equal(t, InvalidScoreMessage, got[0].Message)
		})
	}
}

func TestControllerRevertsToPriorValue(t *testing.T) {
	c, mem, _ := newController(t, algebra, grade.Scores{key("s1", 1): 50})
	ctx := context.Background()

	require.NoError(t, c.Input("s1", 1, "60"))
	require.NoError(t, c.Commit(ctx, "s1", 1))
	require.NoError(t, c.Input("s1", 1, "80"))
	assert.Error(t, c.Commit(ctx, "s1", 1))

	assert.Equal(t, "60", c.Display("s1", 1))
	c.saver.Wait()
	assert.Len(t, mem.Upserts(), 1)
}

func TestControllerCommitTwiceSavesOnce(t *testing.T) {
	c, mem, _ := newController(t, algebra, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, c.Input("s1", 2, "55"))
		require.NoError(t, c.Commit(ctx, "s1", 2))
	}
	c.saver.Wait()

	assert.Len(t, mem.Upserts(), 1)
	assert.Equal(t, StatusSaved, c.Status("s1", 2))
}

func TestControllerClear(t *testing.T) {
	c, mem, _ := newController(t, algebra, nil)
	ctx := context.Background()
	mem.Seed(key("s1", 1), 50)

	t.Run("blank text clears", func(t *testing.T) {
		require.NoError(t, c.Input("s1", 1, "  "))
		require.NoError(t, c.Commit(ctx, "s1", 1))
		c.saver.Wait()
		assert.False(t, mem.Score(key("s1", 1)).Valid)
		assert.Equal(t, "", c.Display("s1", 1))
	})

	t.Run("explicit clear", func(t *testing.T) {
		require.NoError(t, c.Input("s1", 2, "40"))
		require.NoError(t, c.Commit(ctx, "s1", 2))
		c.saver.Wait()
		require.NoError(t, c.Clear(ctx, "s1", 2))
		c.saver.Wait()
		assert.False(t, c.Score(key("s1", 2)).Valid)
		ups := mem.Upserts()
		assert.False(t, ups[len(ups)-1].Value.Valid)
	})
}

func TestControllerCommitWithoutInputIsNoop(t *testing.T) {
	c, mem, _ := newController(t, algebra, grade.Scores{key("s1", 1): 50})
	require.NoError(t, c.Commit(context.Background(), "s1", 1))
	c.saver.Wait()
	assert.Empty(t, mem.Upserts())
}

func TestControllerUnknownCell(t *testing.T) {
	c, _, _ := newController(t, algebra, nil)

	assert.ErrorIs(t, c.Input("ghost", 1, "50"), ErrUnknownCell)
	// Slot 11 belongs to the second semester.
	assert.ErrorIs(t, c.Input("s1", 11, "50"), ErrUnknownCell)

	require.NoError(t, c.SetSemester(grade.SecondSemester))
	assert.NoError(t, c.Input("s1", 11, "50"))
	assert.ErrorIs(t, c.SetSemester(3), grade.ErrInvalidSemester)
}

func TestControllerSnapshot(t *testing.T) {
	persisted := grade.Scores{
		key("s1", 1): 50, key("s1", 2): 45,
		key("s2", 1): 50,
		key("s1", 11): 70,
	}
	c, _, _ := newController(t, algebra, persisted)

	snap := c.Snapshot()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, snap.Columns)
	require.Len(t, snap.Rows, 2)

	ana := snap.Rows[0]
	assert.Equal(t, "48", ana.SemesterAverage) // 47.5
	assert.Equal(t, "59", ana.FinalAverage)    // (48+70)/2
	assert.Equal(t, "50", ana.Cells[0].Text)
	assert.Equal(t, "49", snap.ClassAverage) // floor((48+50)/2)

	bruno := snap.Rows[1]
	assert.Equal(t, "50", bruno.FinalAverage)
	assert.Equal(t, "-", grade.FinalAverage(c, "nobody", c.Subject()).Display())
}

func TestControllerSnapshotConceptSubject(t *testing.T) {
	artKey := func(slot int) grade.CellKey { return grade.CellKey{StudentID: "s1", SubjectID: arts.ID, Slot: slot} }
	c, _, _ := newController(t, arts, grade.Scores{artKey(1): 70, artKey(2): 50})

	snap := c.Snapshot()
	assert.Equal(t, "B", snap.Rows[0].SemesterAverage)
	assert.Equal(t, "70", snap.Rows[0].Cells[0].Text)
	assert.Equal(t, "-", snap.Rows[1].SemesterAverage)
}

func TestControllerEmptySubject(t *testing.T) {
	c, _, _ := newController(t, grade.Subject{}, nil)

	snap := c.Snapshot()
	assert.Empty(t, snap.Columns)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, "-", snap.ClassAverage)
	assert.Equal(t, "-", snap.FinalClassAverage)
}
